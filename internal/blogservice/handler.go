package blogservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

func NewBlogService(m Model, lists *listservice.ListService, media *mediaservice.MediaService, c common.Cache, logger *slog.Logger) *BlogService {
	return &BlogService{
		m:      m,
		lists:  lists,
		media:  media,
		c:      c,
		logger: logger,
	}
}

// CreateBlog stores a new blog for req.UserID and appends it to the author's posted list.
// Nothing is left behind when a step fails: the uploaded image is removed if the insert fails,
// and the blog is deleted again if the posted list cannot be updated.
func (s *BlogService) CreateBlog(ctx context.Context, req *CreateBlogRequest) (*CreateBlogResult, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Brief = strings.TrimSpace(req.Brief)
	req.Category = strings.TrimSpace(req.Category)
	req.Description = sanitizeMarkdown(req.Description)

	v := common.NewValidator()
	validateID(v, req.UserID, "user_id")
	validateTitle(v, req.Title)
	validateBrief(v, req.Brief)
	validateDescription(v, req.Description)
	validateCategory(v, req.Category)
	validateEstimated(v, req.Estimated)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if req.Estimated == 0 {
		req.Estimated = readingTime(req.Description)
	}

	var image mediaservice.Ref
	if len(req.Image) > 0 {
		ref, err := s.media.Upload(ctx, req.UserID, req.Image)
		if err != nil {
			return nil, err
		}
		image = ref
	}

	blog := &Blog{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Brief:       req.Brief,
		Description: req.Description,
		Category:    req.Category,
		Estimated:   req.Estimated,
		Image:       image,
		UserID:      req.UserID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.m.insert(ctx, blog); err != nil {
		s.removeImage(ctx, image)
		return nil, err
	}

	posted, err := s.lists.Append(ctx, listservice.Posted, req.UserID, blog.ID)
	if err != nil {
		if derr := s.m.delete(ctx, blog.ID); derr != nil {
			s.logger.Error("could not delete orphaned blog", "blog_id", blog.ID, "error", derr)
		}
		// A listing read between the insert and the delete may have cached the blog.
		if ierr := s.c.Invalidate(ctx, common.CacheKeyAllBlogs, common.CacheKeyBlog(blog.ID)); ierr != nil {
			s.logger.Error("could not invalidate cache", "blog_id", blog.ID, "error", ierr)
		}
		s.removeImage(ctx, image)
		return nil, err
	}

	if err := s.c.Invalidate(ctx, common.CacheKeyAllBlogs, common.CacheKeyUser(req.UserID)); err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}

	created, err := s.m.getByID(ctx, blog.ID)
	if err != nil {
		return nil, err
	}

	postedBlogs, err := s.BlogsByIDs(ctx, posted.BlogIDs)
	if err != nil {
		return nil, err
	}

	if err := s.Enrich(ctx, append([]*Blog{created}, postedBlogs...)...); err != nil {
		return nil, err
	}

	return &CreateBlogResult{Blog: created, PostedBlogs: postedBlogs}, nil
}

// SaveBlog adds blogID to the user's saved list and returns the saved blogs in the order they
// were saved.
func (s *BlogService) SaveBlog(ctx context.Context, userID, blogID string) ([]*Blog, error) {
	v := common.NewValidator()
	validateID(v, userID, "user_id")
	validateID(v, blogID, "blogId")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if _, err := s.m.getByID(ctx, blogID); err != nil {
		return nil, err
	}

	saved, err := s.lists.Append(ctx, listservice.Saved, userID, blogID)
	if err != nil {
		return nil, err
	}

	if err := s.c.Invalidate(ctx, common.CacheKeyUser(userID)); err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}

	blogs, err := s.BlogsByIDs(ctx, saved.BlogIDs)
	if err != nil {
		return nil, err
	}

	if err := s.Enrich(ctx, blogs...); err != nil {
		return nil, err
	}

	return blogs, nil
}

// GetBlogs returns every blog, newest first.
func (s *BlogService) GetBlogs(ctx context.Context) ([]*Blog, error) {
	blogs, err := common.Fetch(ctx, s.c, common.CacheKeyAllBlogs, s.m.getAll)
	if err != nil {
		return nil, err
	}

	if err := s.Enrich(ctx, blogs...); err != nil {
		return nil, err
	}

	return blogs, nil
}

// GetBlogByID returns a blog post by its ID.
func (s *BlogService) GetBlogByID(ctx context.Context, id string) (*Blog, error) {
	v := common.NewValidator()
	validateID(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog, err := common.Fetch(ctx, s.c, common.CacheKeyBlog(id), func(ctx context.Context) (*Blog, error) {
		return s.m.getByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	if err := s.Enrich(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// BlogsByIDs returns the blogs with the given ids in the order of ids. Unknown ids are skipped.
// The result is not enriched.
func (s *BlogService) BlogsByIDs(ctx context.Context, ids []string) ([]*Blog, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if common.ValidID(id) {
			valid = append(valid, id)
		}
	}

	found, err := s.m.getByIDs(ctx, valid)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Blog, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}

	blogs := make([]*Blog, 0, len(valid))
	for _, id := range valid {
		if b, ok := byID[id]; ok {
			blogs = append(blogs, b)
			delete(byID, id)
		}
	}

	return blogs, nil
}

// DeleteBlog removes a blog and drops the cache entries that listed it.
func (s *BlogService) DeleteBlog(ctx context.Context, id string) error {
	v := common.NewValidator()
	validateID(v, id, "id")
	if !v.Valid() {
		return v.ValidationError()
	}

	if err := s.m.delete(ctx, id); err != nil {
		return err
	}

	return s.c.Invalidate(ctx, common.CacheKeyAllBlogs, common.CacheKeyBlog(id))
}

// Enrich signs the image and author avatar of every blog in place.
func (s *BlogService) Enrich(ctx context.Context, blogs ...*Blog) error {
	items := make([]mediaservice.Resolvable, len(blogs))
	for i, b := range blogs {
		items[i] = b
	}

	return s.media.Enrich(ctx, items...)
}

func (s *BlogService) removeImage(ctx context.Context, image mediaservice.Ref) {
	if image.IsZero() {
		return
	}

	if err := s.media.Remove(ctx, image); err != nil {
		s.logger.Error("could not remove uploaded image", "key", image.Key, "error", err)
	}
}
