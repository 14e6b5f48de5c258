package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/hlog"
)

// User is an operator allowed to log in with a password.
type User struct {
	Name         string
	PasswordHash string
	Role         string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler exchanges a username and password for a bearer token. Unknown
// users and wrong passwords get the same answer.
func LoginHandler(authService *Service, users []User, ttl time.Duration) http.HandlerFunc {
	byName := make(map[string]User, len(users))
	for _, u := range users {
		byName[u.Name] = u
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "username and password are required"})

			return
		}

		user, ok := byName[req.Username]
		if !ok {
			hlog.FromRequest(r).Info().Str("user", req.Username).Msg("login for unknown user")
			unauthorized(w, r)

			return
		}

		match, err := VerifyPassword(req.Password, user.PasswordHash)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Str("user", user.Name).Msg("stored password hash is unusable")
		}

		if !match {
			unauthorized(w, r)

			return
		}

		role := GetRole(user.Role).Name

		token, err := authService.IssueToken(user.Name, role, ttl)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to issue token"})

			return
		}

		hlog.FromRequest(r).Info().Str("user", user.Name).Str("role", role).Msg("login")

		render.JSON(w, r, map[string]any{
			"token":      token,
			"role":       role,
			"expires_in": int(ttl.Seconds()),
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": "invalid username or password"})
}
