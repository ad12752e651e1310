package auth

import (
	stderrors "errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes holds the paths served by the controller
type AuthControllerRoutes struct {
	SignUp     string
	Token      string
	Refresh    string
	Logout     string
	Me         string
	Profile    string
	AdminUsers string
	AdminUser  string
}

// DefaultAdminPageSize is the admin user list page size when no limit is given
const DefaultAdminPageSize = 25

// MaxAdminPageSize caps the limit query parameter of the admin user list
const MaxAdminPageSize = 100

// AuthController serves direct sign up, login, refresh and logout
type AuthController struct {
	Logger     Logger
	Routes     *AuthControllerRoutes
	Auther     *Authenticator
	Refresher  *Refresher
	Tokens     *TokenService
	Users      UserStore
	Directory  UserDirectory
	SessionKey string
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithUserDirectory enables the profile update and admin routes. It is set
// automatically when the UserStore is also a UserDirectory.
func WithUserDirectory(dir UserDirectory) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if dir != nil {
			c.Directory = dir
		}
		return c
	}
}

func NewAuthController(auther *Authenticator, refresher *Refresher, tokens *TokenService, users UserStore, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		Auther:     auther,
		Refresher:  refresher,
		Tokens:     tokens,
		Users:      users,
		SessionKey: DefaultSessionContextKey,
		Routes: &AuthControllerRoutes{
			SignUp:     "/users/signup/",
			Token:      "/users/api/token/",
			Refresh:    "/users/api/token/refresh/",
			Logout:     "/users/logout/",
			Me:         "/users/me/",
			Profile:    "/users/",
			AdminUsers: "/users/admin/",
			AdminUser:  "/users/admin/:user_id/",
		},
	}
	if dir, ok := users.(UserDirectory); ok {
		c.Directory = dir
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil || c.Refresher == nil || c.Tokens == nil || c.Users == nil {
		panic("auth controller requires authenticator, refresher, token service and user store")
	}

	return c
}

// RegisterAuthRoutes mounts the controller routes on app
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	app.Post(controller.Routes.SignUp, controller.SignUp).SetName("signup.post")
	app.Post(controller.Routes.Token, controller.Token).SetName("token.post")
	app.Post(controller.Routes.Refresh, controller.Refresh).SetName("token-refresh.post")
	app.Post(controller.Routes.Logout, controller.Logout).SetName("logout.post")
	session := RequireSession(controller.Tokens, controller.SessionKey)
	app.Get(controller.Routes.Me, controller.Me, session).SetName("me.get")

	if controller.Directory == nil {
		return
	}

	admin := RequireAdmin(controller.SessionKey)
	app.Put(controller.Routes.Profile, controller.UpdateProfile, session).SetName("profile.put")
	app.Get(controller.Routes.AdminUsers, controller.ListUsers, session, admin).SetName("admin-users.get")
	app.Get(controller.Routes.AdminUser, controller.UserDetail, session, admin).SetName("admin-user.get")
}

func (a *AuthController) SignUp(ctx router.Context) error {
	var req SignUpRequest
	if err := ctx.Bind(&req); err != nil {
		return a.badRequest(ctx, err)
	}

	user, err := a.Auther.SignUp(ctx.Context(), req)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message": "sign-up complete",
		"user":    userPayload(user),
	})
}

func (a *AuthController) Token(ctx router.Context) error {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return a.badRequest(ctx, err)
	}
	if err := req.Validate(); err != nil {
		return a.badRequest(ctx, err)
	}

	pair, _, err := a.Auther.Login(ctx.Context(), req.Email, req.Password)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

// RefreshRequest carries the refresh token for rotation and logout
type RefreshRequest struct {
	Refresh string `json:"refresh" form:"refresh"`
}

func (a *AuthController) Refresh(ctx router.Context) error {
	var req RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return a.badRequest(ctx, err)
	}
	if req.Refresh == "" {
		return a.badRequest(ctx, ErrNoEmptyString)
	}

	pair, err := a.Refresher.Refresh(ctx.Context(), req.Refresh)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, pair)
}

func (a *AuthController) Logout(ctx router.Context) error {
	var req RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return a.badRequest(ctx, err)
	}
	if req.Refresh == "" {
		return a.badRequest(ctx, ErrNoEmptyString)
	}

	if err := a.Refresher.Revoke(ctx.Context(), req.Refresh); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"message": "logged out"})
}

// Me returns the profile of the user behind the bearer token
func (a *AuthController) Me(ctx router.Context) error {
	claims, ok := SessionFromContext(ctx, a.SessionKey)
	if !ok {
		return sessionError(ctx, ErrMissingSession)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return sessionError(ctx, ErrTokenMalformed)
	}

	user, err := a.Users.FindUserByID(ctx.Context(), id)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, userPayload(user))
}

// UpdateProfile changes the username or password of the session user
func (a *AuthController) UpdateProfile(ctx router.Context) error {
	claims, ok := SessionFromContext(ctx, a.SessionKey)
	if !ok {
		return sessionError(ctx, ErrMissingSession)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return sessionError(ctx, ErrTokenMalformed)
	}

	var req UpdateProfileRequest
	if err := ctx.Bind(&req); err != nil {
		return a.badRequest(ctx, err)
	}

	user, err := a.Users.FindUserByID(ctx.Context(), id)
	if err != nil {
		return a.respondError(ctx, err)
	}

	if err := a.Auther.ApplyProfile(user, req); err != nil {
		return a.respondError(ctx, err)
	}

	updated, err := a.Directory.UpdateUser(ctx.Context(), user)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"message": "profile updated",
		"user":    userPayload(updated),
	})
}

// ListUsers returns a page of non-admin users
func (a *AuthController) ListUsers(ctx router.Context) error {
	limit, err := queryInt(ctx, "limit", DefaultAdminPageSize)
	if err != nil || limit < 1 {
		return a.badRequest(ctx, err)
	}
	limit = min(limit, MaxAdminPageSize)

	offset, err := queryInt(ctx, "offset", 0)
	if err != nil || offset < 0 {
		return a.badRequest(ctx, err)
	}

	users, total, err := a.Directory.ListUsers(ctx.Context(), limit, offset)
	if err != nil {
		return a.respondError(ctx, err)
	}

	results := make([]map[string]any, 0, len(users))
	for _, u := range users {
		results = append(results, userPayload(u))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"count":   total,
		"results": results,
	})
}

// UserDetail returns one user by id
func (a *AuthController) UserDetail(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("user_id"))
	if err != nil {
		return a.respondError(ctx, ErrIdentityNotFound)
	}

	user, err := a.Users.FindUserByID(ctx.Context(), id)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, userPayload(user))
}

func queryInt(ctx router.Context, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func userPayload(user *User) map[string]any {
	return map[string]any{
		"id":        user.ID.String(),
		"email":     user.Email,
		"username":  user.Username,
		"is_active": user.IsActive,
	}
}

func (a *AuthController) badRequest(ctx router.Context, err error) error {
	body := map[string]any{"err_msg": "invalid_request"}
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		body["errors"] = verrs
	}
	return ctx.JSON(http.StatusBadRequest, body)
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		return a.badRequest(ctx, err)
	}

	status := HTTPStatus(err, http.StatusInternalServerError)
	switch {
	case HasTextCode(err, TextCodeEmailTaken):
		// a duplicate email on sign up is a client error
		status = http.StatusBadRequest
	case status >= http.StatusInternalServerError:
		a.Logger.Error("auth request failed", "error", err)
	}

	return ctx.JSON(status, map[string]any{
		"err_msg": errorTextCode(err, "error"),
	})
}

func errorTextCode(err error, def string) string {
	var richErr *errors.Error
	if stderrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return def
}
