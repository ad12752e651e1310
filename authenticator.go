package auth

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// SignUpRequest is the direct registration payload
type SignUpRequest struct {
	Username   string `json:"username" form:"username"`
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RePassword string `json:"re_password" form:"re_password"`
}

// Validate checks required fields, the password policy and the confirmation
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.RuneLength(1, 150)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, PasswordRules()...),
		validation.Field(&r.RePassword, validation.Required, validation.By(func(value any) error {
			if s, _ := value.(string); s != r.Password {
				return errors.New("passwords do not match")
			}
			return nil
		})),
	)
}

// LoginRequest is the direct login payload
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// UpdateProfileRequest changes the username, the password or both
type UpdateProfileRequest struct {
	Username   string `json:"username" form:"username"`
	Password   string `json:"password" form:"password"`
	RePassword string `json:"re_password" form:"re_password"`
}

// Validate requires at least one change. A new password must pass
// PasswordRules and match its confirmation.
func (r UpdateProfileRequest) Validate() error {
	changingPassword := r.Password != "" || r.RePassword != ""
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required.When(!changingPassword).Error("username or password is required"),
			validation.RuneLength(1, 150),
		),
		validation.Field(&r.Password, validation.When(changingPassword, PasswordRules()...)),
		validation.Field(&r.RePassword, validation.When(changingPassword,
			validation.Required,
			validation.By(func(value any) error {
				if s, _ := value.(string); s != r.Password {
					return errors.New("passwords do not match")
				}
				return nil
			}),
		)),
	)
}

// Authenticator handles local username/password accounts
type Authenticator struct {
	users    UserStore
	tokens   *TokenService
	hasher   PasswordAuthenticator
	logger   Logger
	activity ActivitySink
}

// AuthenticatorOption customizes an Authenticator
type AuthenticatorOption func(*Authenticator)

func WithLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithHasher(hasher PasswordAuthenticator) AuthenticatorOption {
	return func(a *Authenticator) {
		if hasher != nil {
			a.hasher = hasher
		}
	}
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func WithActivitySink(sink ActivitySink) AuthenticatorOption {
	return func(a *Authenticator) {
		a.activity = NormalizeActivitySink(sink)
	}
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserStore, tokens *TokenService, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		users:    users,
		tokens:   tokens,
		hasher:   NewBcryptHasher(DefaultHashCost),
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// SignUp validates the request and creates a local user
func (a *Authenticator) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lookup, err := a.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if lookup.Found() {
		return nil, ErrEmailTaken
	}

	hash, err := a.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := NewUser(req.Email, req.Username)
	user.PasswordHash = hash

	created, err := a.users.CreateUser(ctx, user)
	if err != nil {
		a.logger.Error("sign up create user failed", "error", err)
		return nil, err
	}

	EmitActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventSignup,
		UserID:    created.ID.String(),
		Email:     created.Email,
	})

	return created, nil
}

// Login verifies credentials and mints a token pair
func (a *Authenticator) Login(ctx context.Context, email, password string) (TokenPair, *User, error) {
	user, err := a.verify(ctx, email, password)
	if err != nil {
		EmitActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     email,
			Metadata:  map[string]any{"error": err.Error()},
		})
		return TokenPair{}, nil, err
	}

	pair, err := a.tokens.Mint(user)
	if err != nil {
		a.logger.Error("login mint tokens failed", "error", err, "user_id", user.ID)
		return TokenPair{}, nil, err
	}

	EmitActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return pair, user, nil
}

func (a *Authenticator) verify(ctx context.Context, email, password string) (*User, error) {
	lookup, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !lookup.Found() {
		return nil, ErrMismatchedHashAndPassword
	}

	user := lookup.User()
	if !user.HasPassword() {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := a.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, err
	}

	if !user.IsActive {
		a.logger.Warn("login blocked for inactive user", "user_id", user.ID)
		return nil, ErrUserInactive
	}

	return user, nil
}

// ApplyProfile validates req and writes the changes onto user. The caller
// persists the result.
func (a *Authenticator) ApplyProfile(user *User, req UpdateProfileRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Password != "" {
		hash, err := a.hasher.HashPassword(req.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if req.Username != "" {
		user.Username = req.Username
	}

	return nil
}
