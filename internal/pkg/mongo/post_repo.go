package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrSlugTaken 帖子 slug 已占用（title 派生值重复）
var ErrSlugTaken = errors.New("slug already exists")

// PostQuery 列表查询条件，零值字段不参与过滤
type PostQuery struct {
	UserID     uint64
	Category   string
	Slug       string
	PostID     string
	SearchTerm string
	Skip       int
	Limit      int
	Ascending  bool
}

type PostRepo interface {
	EnsureIndexes(ctx context.Context) error
	CreatePost(ctx context.Context, post *Post) error
	GetPostBySlug(ctx context.Context, slug string) (*Post, error)
	GetPostById(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, q *PostQuery) ([]*Post, error)
	CountPosts(ctx context.Context) (int64, error)
	CountPostsSince(ctx context.Context, since time.Time) (int64, error)
	UpdatePost(ctx context.Context, post *Post) error
	DeletePost(ctx context.Context, id string) error
}

type postRepoImpl struct {
	col *mongo.Collection
}

func NewPostRepo(db *mongo.Database) PostRepo {
	return &postRepoImpl{
		col: db.Collection("posts"),
	}
}

// EnsureIndexes 启动时建立唯一索引，slug 的唯一性由这里兜底
func (s *postRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	})
	return err
}

// CreatePost 写入新帖子，slug 冲突转换为 ErrSlugTaken
func (s *postRepoImpl) CreatePost(ctx context.Context, post *Post) error {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	res, err := s.col.InsertOne(ctx, post)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlugTaken
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

func (s *postRepoImpl) GetPostBySlug(ctx context.Context, slug string) (*Post, error) {
	var post Post
	err := s.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

func (s *postRepoImpl) GetPostById(ctx context.Context, id string) (*Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var post Post
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ListPosts 条件查询，按更新时间排序
func (s *postRepoImpl) ListPosts(ctx context.Context, q *PostQuery) ([]*Post, error) {
	filter := bson.M{}
	if q.UserID > 0 {
		filter["user_id"] = q.UserID
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Slug != "" {
		filter["slug"] = q.Slug
	}
	if q.PostID != "" {
		if oid, err := primitive.ObjectIDFromHex(q.PostID); err == nil {
			filter["_id"] = oid
		}
	}
	if q.SearchTerm != "" {
		pattern := primitive.Regex{Pattern: q.SearchTerm, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"sections.content": pattern},
		}
	}

	order := -1
	if q.Ascending {
		order = 1
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: order}}).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var posts []*Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (s *postRepoImpl) CountPosts(ctx context.Context) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{})
}

// CountPostsSince 统计某时间点之后创建的帖子数
func (s *postRepoImpl) CountPostsSince(ctx context.Context, since time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": since}})
}

// UpdatePost 覆盖可编辑字段
func (s *postRepoImpl) UpdatePost(ctx context.Context, post *Post) error {
	post.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"title":      post.Title,
		"slug":       post.Slug,
		"category":   post.Category,
		"sections":   post.Sections,
		"updated_at": post.UpdatedAt,
	}}

	_, err := s.col.UpdateByID(ctx, post.ID, update)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return ErrSlugTaken
	}
	return err
}

func (s *postRepoImpl) DeletePost(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	_, err = s.col.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
