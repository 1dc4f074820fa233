package es

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

const MaxSearchDepth = 400

type PostRepo interface {
	SearchPosts(ctx context.Context, keyword string, from, size int) ([]*PostES, error)
	GetLatestPosts(ctx context.Context, from, size int) ([]*PostES, error)
	IndexPost(ctx context.Context, post *PostES) error
	DeletePost(ctx context.Context, id string) error
}

type PostRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewPostRepo(client *elasticsearch.TypedClient) PostRepo {
	return &PostRepoImpl{client: client}
}

// SearchPosts 按关键字检索标题、正文与分类
func (s *PostRepoImpl) SearchPosts(ctx context.Context, keyword string, from, size int) ([]*PostES, error) {
	if from >= MaxSearchDepth {
		return []*PostES{}, nil
	}

	req := s.client.Search().Index(PostIndex).From(from).Size(size)

	req.Query(&types.Query{
		Bool: &types.BoolQuery{
			Must: []types.Query{
				{
					MultiMatch: &types.MultiMatchQuery{
						Query:  keyword,
						Fields: []string{"title^2", "sections.content", "category"},
					},
				},
			},
		},
	})

	return s.executeSearch(ctx, req)
}

// GetLatestPosts 最新流，fallback 无关键字场景
func (s *PostRepoImpl) GetLatestPosts(ctx context.Context, from, size int) ([]*PostES, error) {
	req := s.client.Search().Index(PostIndex).From(from).Size(size)

	req.Sort(types.SortOptions{
		SortOptions: map[string]types.FieldSort{
			"updated_at": {Order: &sortorder.Desc},
		},
	})

	return s.executeSearch(ctx, req)
}

// IndexPost 覆盖写入索引文档
func (s *PostRepoImpl) IndexPost(ctx context.Context, post *PostES) error {
	_, err := s.client.Index(PostIndex).
		Id(post.ID).
		Document(post).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index post %s: %w", post.ID, err)
	}
	return nil
}

// DeletePost 删除索引文档，文档不存在视为成功
func (s *PostRepoImpl) DeletePost(ctx context.Context, id string) error {
	_, err := s.client.Delete(PostIndex, id).Do(ctx)
	if err != nil {
		var esErr *types.ElasticsearchError
		if errors.As(err, &esErr) && esErr.Status == NotFoundCode {
			return nil
		}
		return fmt.Errorf("failed to delete post %s from index: %w", id, err)
	}
	return nil
}

func (s *PostRepoImpl) executeSearch(ctx context.Context, req *search.Search) ([]*PostES, error) {
	res, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}

	posts := make([]*PostES, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var post PostES
		if err := json.Unmarshal(hit.Source_, &post); err != nil {
			continue
		}
		posts = append(posts, &post)
	}
	return posts, nil
}
