package service

import (
	"context"
	"errors"
	"strings"

	"clipstream/internal/config"
	"clipstream/internal/errcode"
	"clipstream/internal/model"
	"clipstream/pkg/utils"

	"gorm.io/gorm"
)

const (
	minSlugLength = 3
	maxSlugLength = 50
)

// NormalizeSlug lowercases and trims s, turns spaces into dashes and drops
// anything outside [a-z0-9_-].
func NormalizeSlug(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if len(slug) < minSlugLength || len(slug) > maxSlugLength {
		return "", errcode.InvalidChannelSlug
	}
	return slug, nil
}

// RegisterInput is a new account with its channel.
type RegisterInput struct {
	Username    string
	Password    string
	ChannelName string
	ChannelSlug string
}

// Session is an issued bearer token.
type Session struct {
	Token     string
	ExpiresIn int
	User      *model.User
}

type AuthService struct {
	users UserStore
	jwt   *config.JWTConfig
}

func NewAuthService(users UserStore, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{users: users, jwt: jwtCfg}
}

// Register creates a user together with its channel. The slug defaults to
// the username when not given.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	rawSlug := in.ChannelSlug
	if strings.TrimSpace(rawSlug) == "" {
		rawSlug = username
	}
	slug, err := NormalizeSlug(rawSlug)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errcode.UsernameExists
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	channelName := strings.TrimSpace(in.ChannelName)
	if channelName == "" {
		channelName = username
	}

	user := &model.User{UserName: username, Password: hashed}
	channel := &model.Channel{Name: channelName, Slug: slug}
	if err := s.users.CreateWithChannel(ctx, user, channel); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errcode.ChannelSlugExists
		}
		return nil, err
	}
	user.Channel = channel
	return user, nil
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.InvalidCredential
		}
		return nil, err
	}
	if !utils.VerifyPassword(password, user.Password) {
		return nil, errcode.InvalidCredential
	}

	var channelID int64
	if user.Channel != nil {
		channelID = user.Channel.ID
	}
	token, err := utils.GenerateToken(s.jwt, user.ID, channelID, user.IsStaff)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ExpiresIn: int(s.jwt.ExpireDuration().Seconds()),
		User:      user,
	}, nil
}

// CurrentUser returns the account behind a token.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.UserNotFound
		}
		return nil, err
	}
	return user, nil
}
