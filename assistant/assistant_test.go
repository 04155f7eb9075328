package assistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/tradevortex-client/assistant"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/internal/fakebackend"
	"github.com/stretchr/testify/require"
)

func setupAssistant(t *testing.T) (*assistant.Service, int64) {
	t.Helper()
	backend := fakebackend.New(t)

	backend.Handle(http.MethodPost, "/aiassist/run/", func(w http.ResponseWriter, r *http.Request, user *fakebackend.Account) {
		var body struct {
			Inputs map[string]string `json:"inputs"`
			UserID int64             `json:"userid"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.UserID != user.ID || body.Inputs["topic"] == "" {
			fakebackend.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "User ID missing"})
			return
		}
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{"message": "started", "run_id": 12, "user_id": body.UserID})
	})
	backend.HandlePublic(http.MethodPost, "/aiassist/bot/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Inputs map[string]string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		var raw any = "single answer"
		if body.Inputs["question"] == "many" {
			raw = []string{"one", "two"}
		}
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{"message": "ok", "result": map[string]any{"raw": raw}})
	})
	backend.Handle(http.MethodGet, "/aiassist/result/", func(w http.ResponseWriter, r *http.Request, _ *fakebackend.Account) {
		if r.URL.Query().Get("run_id") != "12" {
			fakebackend.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{"id": 12, "status": "completed", "result": "# Report", "recommendations": 0})
	})
	backend.Handle(http.MethodGet, "/aiassist/history/", func(w http.ResponseWriter, r *http.Request, _ *fakebackend.Account) {
		fakebackend.WriteJSON(w, http.StatusOK, []map[string]any{
			{"id": 12, "status": "completed", "result": map[string]string{"raw": "structured"}},
			{"id": 13, "status": "pending", "result": ""},
		})
	})
	backend.Handle(http.MethodPost, "/aiassist/recommend/", func(w http.ResponseWriter, r *http.Request, _ *fakebackend.Account) {
		fakebackend.WriteJSON(w, http.StatusOK, map[string]any{"message": "ok", "recommendations": 1})
	})

	client, account := backend.LoggedInClient(t)
	return assistant.NewService(client), account.ID
}

func TestRunAndResult(t *testing.T) {
	svc, userID := setupAssistant(t)
	ctx := context.Background()

	started, err := svc.Run(ctx, userID, "반도체 업황")
	require.NoError(t, err)
	require.Equal(t, int64(12), started.RunID)

	_, err = svc.Run(ctx, userID, "  ")
	require.ErrorIs(t, err, tverrors.ErrInvalidRequest)

	run, err := svc.Result(ctx, started.RunID)
	require.NoError(t, err)
	require.True(t, run.Done())
	require.Equal(t, "# Report", run.ResultText())

	_, err = svc.Result(ctx, 99)
	require.ErrorIs(t, err, tverrors.ErrNotFound)

	n, err := svc.Recommend(ctx, started.RunID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestHistory(t *testing.T) {
	svc, _ := setupAssistant(t)

	runs, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.JSONEq(t, `{"raw":"structured"}`, runs[0].ResultText())
	require.False(t, runs[1].Done())
}

func TestChat(t *testing.T) {
	svc, _ := setupAssistant(t)

	replies, err := svc.Chat(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []string{"single answer"}, replies)

	replies, err = svc.Chat(context.Background(), "many")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, replies)
}

func TestParseRunID(t *testing.T) {
	for msg, want := range map[string]int64{
		"AI 분석 작업이 진행 중입니다. Run ID: 42":           42,
		"AI 분석 서비스 작업이 완료되었습니다. 결과를 확인하세요! 보고서 ID: 7": 7,
	} {
		id, ok := assistant.ParseRunID(msg)
		require.True(t, ok, msg)
		require.Equal(t, want, id)
	}

	_, ok := assistant.ParseRunID("no id here")
	require.False(t, ok)
}

func TestParseStatus(t *testing.T) {
	require.Equal(t, assistant.StatusCompleted, assistant.ParseStatus("작업이 완료되었습니다"))
	require.Equal(t, assistant.StatusRunning, assistant.ParseStatus("작업 진행 중"))
	require.Equal(t, assistant.Status(""), assistant.ParseStatus("hello"))
}
