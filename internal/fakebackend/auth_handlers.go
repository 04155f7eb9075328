package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

type userJSON struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func toUserJSON(a *Account) userJSON {
	return userJSON{ID: a.ID, Username: a.Username, Email: a.Email}
}

func (b *Backend) initAuthRoutes() {
	b.HandlePublic(http.MethodPost, "/token2/", b.login)
	b.HandlePublic(http.MethodPost, "/token/refresh/", b.refresh)
	b.HandlePublic(http.MethodPost, "/accounts/signup/", b.signup)
	b.HandlePublic(http.MethodGet, "/accounts/activate/", b.activate)
	b.HandlePublic(http.MethodPost, "/accounts/check_email/", b.checkAvailable(func(a *Account) string { return a.Email }, "email"))
	b.HandlePublic(http.MethodPost, "/accounts/check_username/", b.checkAvailable(func(a *Account) string { return a.Username }, "username"))
	b.HandlePublic(http.MethodPost, "/accounts/{provider:google|naver|kakao}/", b.socialLogin)

	b.Handle(http.MethodGet, "/accounts/user-profile/", func(w http.ResponseWriter, r *http.Request, user *Account) {
		writeJSON(w, http.StatusOK, toUserJSON(user))
	})
	b.Handle(http.MethodPut, "/accounts/user-profile/update/", b.updateProfile)
	b.Handle(http.MethodGet, "/echo/", func(w http.ResponseWriter, r *http.Request, user *Account) {
		writeJSON(w, http.StatusOK, map[string]any{"user_id": user.ID, "query": r.URL.RawQuery})
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	account := b.findAccount(func(a *Account) bool { return a.Email == body.Email })
	if account == nil || bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(body.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
		return
	}
	if !account.Verified {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "email verification required"})
		return
	}
	access, refresh := b.IssueTokens(account.ID)
	writeJSON(w, http.StatusOK, map[string]any{"access": access, "refresh": refresh, "user": toUserJSON(account)})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	b.mu.Lock()
	br := b.barrier
	b.mu.Unlock()
	if br != nil {
		br.wait()
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}
	claims, err := b.parse(body.Refresh, "refresh", false)
	if err != nil {
		tokenNotValid(w)
		return
	}

	// Check and blacklist together: of two concurrent exchanges of one
	// refresh token exactly one succeeds
	if b.rotate && b.blacklist {
		b.mu.Lock()
		used := b.blacklisted[claims.ID]
		b.blacklisted[claims.ID] = true
		b.mu.Unlock()
		if used {
			tokenNotValid(w)
			return
		}
	}

	resp := map[string]string{"access": b.mint(claims.UserID, "access", b.accessTTL)}
	if b.rotate {
		resp["refresh"] = b.mint(claims.UserID, "refresh", b.refreshTTL)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) socialLogin(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AccessToken != "valid-"+provider {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": provider + " token rejected"})
		return
	}

	email := provider + "@social.example"
	account := b.findAccount(func(a *Account) bool { return a.Email == email })
	if account == nil {
		id := b.addAccount(email, provider+"-user", "unused", true)
		account = b.findAccount(func(a *Account) bool { return a.ID == id })
	}
	access, refresh := b.IssueTokens(account.ID)
	writeJSON(w, http.StatusOK, map[string]any{"access_token": access, "refresh_token": refresh, "user": toUserJSON(account)})
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request, user *Account) {
	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Username) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"username": {"This field may not be blank."}})
		return
	}
	b.mu.Lock()
	user.Username = body.Username
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, toUserJSON(user))
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		Username  string `json:"username"`
		Password1 string `json:"password1"`
		Password2 string `json:"password2"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"This field is required."}})
		return
	}
	if body.Password1 != body.Password2 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"The two password fields didn't match."}})
		return
	}
	if b.findAccount(func(a *Account) bool { return a.Email == body.Email }) != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"A user is already registered with this e-mail address."}})
		return
	}
	id := b.addAccount(body.Email, body.Username, body.Password1, false)
	writeJSON(w, http.StatusCreated, map[string]string{"detail": "Verification e-mail sent.", "uid": strconv.FormatInt(id, 10)})
}

// ActivationToken is the token the activation mail would carry for a user
func ActivationToken(userID int64) string {
	return fmt.Sprintf("activate-%d", userID)
}

func (b *Backend) activate(w http.ResponseWriter, r *http.Request) {
	uid, tok := r.URL.Query().Get("uid"), r.URL.Query().Get("token")
	if uid == "" || tok == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil || tok != ActivationToken(id) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid activation link"})
		return
	}
	account := b.findAccount(func(a *Account) bool { return a.ID == id })
	if account == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid activation link"})
		return
	}
	b.mu.Lock()
	account.Verified = true
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "account activated"})
}

func (b *Backend) checkAvailable(field func(*Account) string, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		value := body[name]
		taken := b.findAccount(func(a *Account) bool { return field(a) == value }) != nil
		writeJSON(w, http.StatusOK, map[string]bool{"exists": taken})
	}
}

func (b *Backend) findAccount(match func(*Account) bool) *Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if match(a) {
			return a
		}
	}
	return nil
}
