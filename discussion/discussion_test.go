package discussion_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jrsteele09/tradevortex-client/discussion"
	tverrors "github.com/jrsteele09/tradevortex-client/internal/errors"
	"github.com/jrsteele09/tradevortex-client/internal/fakebackend"
	"github.com/stretchr/testify/require"
)

func setupDiscussion(t *testing.T) *discussion.Service {
	t.Helper()
	backend := fakebackend.New(t)

	backend.HandlePublic(http.MethodGet, "/toron/categories/", func(w http.ResponseWriter, r *http.Request) {
		fakebackend.WriteJSON(w, http.StatusOK, []discussion.Category{{ID: 1, Name: "금리 인하"}})
	})
	backend.HandlePublic(http.MethodGet, "/toron/votes/summary/", func(w http.ResponseWriter, r *http.Request) {
		fakebackend.WriteJSON(w, http.StatusOK, []map[string]any{{
			"category_id": 1, "category_name": "금리 인하", "up": 3, "down": 1,
			"opinions": []map[string]string{{"text": "yes", "type": "up"}},
		}})
	})
	backend.HandlePublic(http.MethodPost, "/toron/votes/", func(w http.ResponseWriter, r *http.Request) {
		var v discussion.Vote
		require.NoError(t, json.NewDecoder(r.Body).Decode(&v))
		fakebackend.WriteJSON(w, http.StatusCreated, v)
	})
	backend.HandlePublic(http.MethodPost, "/toron/comments/", func(w http.ResponseWriter, r *http.Request) {
		var c discussion.Comment
		require.NoError(t, json.NewDecoder(r.Body).Decode(&c))
		fakebackend.WriteJSON(w, http.StatusCreated, c)
	})

	client, _ := backend.Client(t)
	return discussion.NewService(client)
}

func TestCategoriesAndSummary(t *testing.T) {
	svc := setupDiscussion(t)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, "금리 인하", cats[0].Name)

	summary, err := svc.VoteSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 1)
	require.Equal(t, 0.75, summary[0].UpShare())
	require.Equal(t, discussion.Up, summary[0].Opinions[0].Type)
	require.Zero(t, discussion.Summary{}.UpShare())
}

func TestVote(t *testing.T) {
	svc := setupDiscussion(t)

	v, err := svc.Vote(context.Background(), 1, discussion.Down, "too early")
	require.NoError(t, err)
	require.Equal(t, discussion.Down, v.VoteType)
	require.Equal(t, "too early", v.Opinion)

	_, err = svc.Vote(context.Background(), 1, "sideways", "")
	require.ErrorIs(t, err, tverrors.ErrInvalidRequest)
}

func TestComment(t *testing.T) {
	svc := setupDiscussion(t)

	c, err := svc.Comment(context.Background(), 1, 7, "agreed")
	require.NoError(t, err)
	require.NotNil(t, c.Vote)
	require.Equal(t, int64(7), *c.Vote)

	c, err = svc.Comment(context.Background(), 1, 0, "general")
	require.NoError(t, err)
	require.Nil(t, c.Vote)

	_, err = svc.Comment(context.Background(), 1, 0, "")
	require.ErrorIs(t, err, tverrors.ErrInvalidRequest)
}
