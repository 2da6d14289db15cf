package userservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

var (
	ErrPasswordMismatch   = errors.New("password and confirm password do not match")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
)

func NewUserService(m Model, tokens *TokenIssuer, lists *listservice.ListService, blogs *blogservice.BlogService, media *mediaservice.MediaService, mb common.MessageProducer, c common.Cache, logger *slog.Logger) *UserService {
	return &UserService{
		m:      m,
		tokens: tokens,
		lists:  lists,
		blogs:  blogs,
		media:  media,
		mb:     mb,
		c:      c,
		logger: logger,
	}
}

// CreateUser creates a new user account and publishes a user.created event.
func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)

	v := common.NewValidator()
	validateName(v, req.Name)
	validateEmail(v, req.Email)
	validatePassword(v, req.Password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	_, err := s.m.getByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return nil, ErrDuplicateUser
	case !errors.Is(err, common.ErrRecordNotFound):
		return nil, err
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Interests: []string{},
		Following: []string{},
		CreatedAt: time.Now().UTC(),
	}

	if err := u.Password.hashPassword(req.Password); err != nil {
		return nil, err
	}

	if len(req.Avatar) > 0 {
		ref, err := s.media.Upload(ctx, u.ID, req.Avatar)
		if err != nil {
			return nil, err
		}
		u.Avatar = ref
	}

	if err := s.m.insert(ctx, u); err != nil {
		s.removeMedia(ctx, u.Avatar)
		return nil, err
	}

	s.publishCreated(ctx, u)

	if err := s.media.Enrich(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// publishCreated announces a new account. The account exists whether or not the event goes
// out, so a failure is only logged.
func (s *UserService) publishCreated(ctx context.Context, u *User) {
	event := common.UserCreatedEvent{UserID: u.ID, Name: u.Name, Email: u.Email}
	if err := common.PublishJSON(ctx, s.mb, event, common.UserCreatedKey, common.UserExchange); err != nil {
		s.logger.Error("could not publish user created event", "user_id", u.ID, "error", err)
	}
}

// Authenticate checks the credentials and returns a bearer token for the user. Unknown emails
// and wrong passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*AuthToken, *User, error) {
	email = normalizeEmail(email)

	v := common.NewValidator()
	v.Check(email != "", "email", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, nil, v.ValidationError()
	}

	u, err := s.m.getByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, nil, ErrInvalidCredentials
		default:
			return nil, nil, err
		}
	}

	ok, err := u.Password.matches(password)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, nil, err
	}

	if err := s.media.Enrich(ctx, u); err != nil {
		return nil, nil, err
	}

	return token, u, nil
}

// VerifyToken returns the user a bearer token was issued to. The user must still exist.
func (s *UserService) VerifyToken(ctx context.Context, token string) (*User, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	u, err := s.m.getByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, ErrInvalidToken
		default:
			return nil, err
		}
	}

	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*User, error) {
	v := common.NewValidator()
	validateID(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u, err := s.m.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.media.Enrich(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// GetUserDetails returns the user with its posted and saved blogs populated. Only the user and
// its list ids are cached; blogs and their authors are read from the store on every call, so a
// profile change by an author is visible in every list that holds one of their blogs.
func (s *UserService) GetUserDetails(ctx context.Context, id string) (*Details, error) {
	v := common.NewValidator()
	validateID(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	rec, err := common.Fetch(ctx, s.c, common.CacheKeyUser(id), func(ctx context.Context) (*detailsRecord, error) {
		return s.loadDetails(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	posted, err := s.blogs.BlogsByIDs(ctx, rec.PostedIDs)
	if err != nil {
		return nil, err
	}

	saved, err := s.blogs.BlogsByIDs(ctx, rec.SavedIDs)
	if err != nil {
		return nil, err
	}

	d := &Details{User: rec.User, PostedBlogs: posted, SavedBlogs: saved}
	if err := s.media.Enrich(ctx, d.resolvables()...); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *UserService) loadDetails(ctx context.Context, id string) (*detailsRecord, error) {
	u, err := s.m.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	posted, err := s.lists.Get(ctx, listservice.Posted, id)
	if err != nil {
		return nil, err
	}

	saved, err := s.lists.Get(ctx, listservice.Saved, id)
	if err != nil {
		return nil, err
	}

	return &detailsRecord{User: u, PostedIDs: posted.BlogIDs, SavedIDs: saved.BlogIDs}, nil
}

// UpdateProfile writes only the fields set in req. The avatar it replaced is removed from
// storage once the new one is saved.
func (s *UserService) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*User, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	req.Interests = normalizeInterests(req.Interests)

	v := common.NewValidator()
	validateID(v, req.UserID, "user_id")
	if req.Name != nil {
		validateName(v, *req.Name)
	}
	validateInterests(v, req.Interests)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if _, err := s.m.getByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	changes := profileChanges{Name: req.Name, Interests: req.Interests}
	if len(req.Avatar) > 0 {
		ref, err := s.media.Upload(ctx, req.UserID, req.Avatar)
		if err != nil {
			return nil, err
		}
		changes.Avatar = &ref
	}

	if !changes.empty() {
		previous, err := s.m.update(ctx, req.UserID, changes)
		if err != nil {
			if changes.Avatar != nil {
				s.removeMedia(ctx, *changes.Avatar)
			}
			return nil, err
		}

		if changes.Avatar != nil {
			s.removeMedia(ctx, previous)
		}
	}

	u, err := s.m.getByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	// Name and avatar are embedded in every blog the user posted.
	posted, err := s.lists.Get(ctx, listservice.Posted, u.ID)
	if err != nil {
		return nil, err
	}

	keys := []string{common.CacheKeyUser(u.ID), common.CacheKeyAllBlogs}
	for _, id := range posted.BlogIDs {
		keys = append(keys, common.CacheKeyBlog(id))
	}
	if err := s.c.Invalidate(ctx, keys...); err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}

	if err := s.media.Enrich(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

// Follow adds targetID to the users userID follows.
func (s *UserService) Follow(ctx context.Context, userID, targetID string) (*User, error) {
	v := common.NewValidator()
	validateID(v, userID, "user_id")
	validateID(v, targetID, "userId")
	v.Check(userID != targetID, "userId", "cannot follow yourself")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if _, err := s.m.getByID(ctx, targetID); err != nil {
		return nil, err
	}

	if err := s.m.follow(ctx, userID, targetID); err != nil {
		return nil, err
	}

	if err := s.c.Invalidate(ctx, common.CacheKeyUser(userID)); err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}

	return s.GetUserByID(ctx, userID)
}

func (s *UserService) removeMedia(ctx context.Context, ref mediaservice.Ref) {
	if ref.Key == "" {
		return
	}

	if err := s.media.Remove(ctx, ref); err != nil {
		s.logger.Error("could not remove media", "key", ref.Key, "error", err)
	}
}
