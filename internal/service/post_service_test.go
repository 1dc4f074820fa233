package service

import (
	"Inkstone/internal/api/config"
	"Inkstone/internal/api/dto"
	"Inkstone/internal/model"
	"Inkstone/internal/pkg/consts"
	"Inkstone/internal/pkg/es"
	"Inkstone/internal/pkg/mongo"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMain(m *testing.M) {
	config.Cfg = &config.Config{
		MinIO: config.MinIOConfig{
			ExternalEndpoint: "media.test.local",
			MainBucket:       "posts",
		},
	}
	os.Exit(m.Run())
}

func validBase() *dto.PostBaseDTO {
	return &dto.PostBaseDTO{
		Title:    "Hello, World!",
		Category: "technology",
		Sections: []dto.SectionDTO{
			{Kind: consts.SectionKindText, Content: "<p>body</p>", Order: 0},
		},
	}
}

func TestValidatePostBaseAcceptsValidDraft(t *testing.T) {
	require.NoError(t, validatePostBase(validBase()))
}

func TestValidatePostBaseRejectsEmptyTitle(t *testing.T) {
	base := validBase()
	base.Title = "   "
	assert.ErrorIs(t, validatePostBase(base), ErrTitleRequired)
}

func TestValidatePostBaseRejectsNoSections(t *testing.T) {
	base := validBase()
	base.Sections = nil
	assert.ErrorIs(t, validatePostBase(base), ErrTitleRequired)
}

func TestValidatePostBaseRejectsBlankSectionContent(t *testing.T) {
	base := validBase()
	base.Sections[0].Content = "  "
	assert.ErrorIs(t, validatePostBase(base), ErrTitleRequired)
}

func TestValidatePostBaseDefaultsCategory(t *testing.T) {
	base := validBase()
	base.Category = ""
	require.NoError(t, validatePostBase(base))
	assert.Equal(t, consts.CategoryDefault, base.Category)
}

func TestValidatePostBaseRejectsUnknownCategory(t *testing.T) {
	base := validBase()
	base.Category = "gossip"
	assert.ErrorIs(t, validatePostBase(base), ErrCategoryInvalid)
}

func TestValidatePostBaseRejectsUnknownSectionKind(t *testing.T) {
	base := validBase()
	base.Sections[0].Kind = "audio"
	assert.ErrorIs(t, validatePostBase(base), ErrSectionKindInvalid)
}

func TestErrorMapCoversHTTPSemantics(t *testing.T) {
	assert.Equal(t, BadRequest, ErrorMap[ErrParamInvalid])
	assert.Equal(t, BadRequest, ErrorMap[ErrTitleRequired])
	assert.Equal(t, BadRequest, ErrorMap[ErrSlugExist])
	assert.Equal(t, BadRequest, ErrorMap[ErrFileNotSupported])
	assert.Equal(t, Forbidden, ErrorMap[ForbiddenError])
	assert.Equal(t, Forbidden, ErrorMap[ErrUserBan])
	assert.Equal(t, NotFound, ErrorMap[ErrPostNotFound])
}

type fakePostRepo struct {
	mongo.PostRepo
	posts     map[string]*mongo.Post
	listCalls int
}

func (f *fakePostRepo) ListPosts(ctx context.Context, q *mongo.PostQuery) ([]*mongo.Post, error) {
	f.listCalls++
	out := make([]*mongo.Post, 0, len(f.posts))
	for _, post := range f.posts {
		out = append(out, post)
	}
	return out, nil
}

func (f *fakePostRepo) GetPostById(ctx context.Context, id string) (*mongo.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) CountPosts(ctx context.Context) (int64, error) {
	return int64(len(f.posts)), nil
}

func (f *fakePostRepo) CountPostsSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

type fakeESRepo struct {
	es.PostRepo
	hits        []*es.PostES
	err         error
	latestCalls int
	searchCalls int
}

func (f *fakeESRepo) GetLatestPosts(ctx context.Context, from, size int) ([]*es.PostES, error) {
	f.latestCalls++
	return f.hits, f.err
}

func (f *fakeESRepo) SearchPosts(ctx context.Context, keyword string, from, size int) ([]*es.PostES, error) {
	f.searchCalls++
	return f.hits, f.err
}

type fakeUserRepo struct {
	users map[uint64]*model.User
}

func (f *fakeUserRepo) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetUserByIds(ctx context.Context, ids []uint64) ([]*model.User, error) {
	out := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func textPost(userID uint64) *mongo.Post {
	return &mongo.Post{
		ID:       primitive.NewObjectID(),
		UserID:   userID,
		Title:    "Hello",
		Slug:     "hello",
		Category: "technology",
		Sections: []mongo.PostSection{{Kind: consts.SectionKindText, Content: "<p>body</p>", Order: 0}},
	}
}

func TestListPostsDefaultFeedUsesLatestIndex(t *testing.T) {
	post := textPost(1)
	pf := &fakePostRepo{posts: map[string]*mongo.Post{post.ID.Hex(): post}}
	ef := &fakeESRepo{hits: []*es.PostES{{ID: post.ID.Hex()}}}
	uf := &fakeUserRepo{users: map[uint64]*model.User{1: {ID: 1, Nickname: "作者"}}}
	svc := NewPostService(pf, ef, uf, nil)

	result, err := svc.ListPosts(context.Background(), &dto.PostListDTO{})
	require.NoError(t, err)
	assert.Equal(t, 1, ef.latestCalls)
	assert.Equal(t, 0, ef.searchCalls)
	assert.Equal(t, 0, pf.listCalls)
	require.Len(t, result.Posts, 1)
	assert.Equal(t, "hello", result.Posts[0].Slug)
}

func TestListPostsFilteredQueryUsesMongo(t *testing.T) {
	post := textPost(1)
	pf := &fakePostRepo{posts: map[string]*mongo.Post{post.ID.Hex(): post}}
	ef := &fakeESRepo{}
	uf := &fakeUserRepo{users: map[uint64]*model.User{1: {ID: 1}}}
	svc := NewPostService(pf, ef, uf, nil)

	_, err := svc.ListPosts(context.Background(), &dto.PostListDTO{Category: "technology"})
	require.NoError(t, err)
	assert.Equal(t, 1, pf.listCalls)
	assert.Equal(t, 0, ef.latestCalls)
}

func TestListPostsLatestIndexFallsBackToMongo(t *testing.T) {
	post := textPost(1)
	pf := &fakePostRepo{posts: map[string]*mongo.Post{post.ID.Hex(): post}}
	ef := &fakeESRepo{err: errors.New("index unavailable")}
	uf := &fakeUserRepo{users: map[uint64]*model.User{1: {ID: 1}}}
	svc := NewPostService(pf, ef, uf, nil)

	result, err := svc.ListPosts(context.Background(), &dto.PostListDTO{})
	require.NoError(t, err)
	assert.Equal(t, 1, ef.latestCalls)
	assert.Equal(t, 1, pf.listCalls)
	require.Len(t, result.Posts, 1)
}

func TestCreatePostRejectsBannedAuthor(t *testing.T) {
	pf := &fakePostRepo{posts: map[string]*mongo.Post{}}
	ef := &fakeESRepo{}
	uf := &fakeUserRepo{users: map[uint64]*model.User{1: {ID: 1, IsBan: true}}}
	svc := NewPostService(pf, ef, uf, nil)

	_, err := svc.CreatePost(context.Background(), 1, validBase())
	assert.ErrorIs(t, err, ErrUserBan)
}
