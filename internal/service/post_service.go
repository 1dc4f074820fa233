package service

import (
	"Inkstone/internal/api/dto"
	"Inkstone/internal/model"
	"Inkstone/internal/pkg/consts"
	"Inkstone/internal/pkg/es"
	"Inkstone/internal/pkg/kafka"
	"Inkstone/internal/pkg/minio"
	"Inkstone/internal/pkg/mongo"
	"Inkstone/internal/pkg/redis"
	"Inkstone/internal/pkg/util"
	"Inkstone/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// postSlugCacheTTL 详情页缓存时长
const postSlugCacheTTL = 10 * time.Minute

// MaxListLimit 单页上限
const MaxListLimit = 50

type PostService interface {
	CreatePost(ctx context.Context, userID uint64, postDTO *dto.PostBaseDTO) (*dto.PostDTO, error)
	GetPostBySlug(ctx context.Context, slug string) (*dto.PostDTO, error)
	ListPosts(ctx context.Context, listDTO *dto.PostListDTO) (*dto.PostListResultDTO, error)
	UpdatePostContent(ctx context.Context, userID uint64, isAdmin bool, postID string, postDTO *dto.PostBaseDTO) (*dto.PostDTO, error)
	DeletePost(ctx context.Context, userID uint64, isAdmin bool, postID string) error
}

type postServiceImpl struct {
	postRepo   mongo.PostRepo
	postESRepo es.PostRepo
	userRepo   repository.UserRepo
	producer   *kafka.Producer
}

func NewPostService(postRepo mongo.PostRepo, postESRepo es.PostRepo, userRepo repository.UserRepo, producer *kafka.Producer) PostService {
	return &postServiceImpl{
		postRepo:   postRepo,
		postESRepo: postESRepo,
		userRepo:   userRepo,
		producer:   producer,
	}
}

// CreatePost 创建帖子
// slug 由标题派生，图片段落先核对暂存元数据再搬运到正式桶
func (s *postServiceImpl) CreatePost(ctx context.Context, userID uint64, postDTO *dto.PostBaseDTO) (*dto.PostDTO, error) {
	if err := validatePostBase(postDTO); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, UnExpectedError
	}
	if author == nil {
		return nil, ErrUserNotFound
	}
	if author.IsBan {
		return nil, ErrUserBan
	}

	slug := util.Slugify(postDTO.Title)
	if slug == "" {
		return nil, ErrTitleRequired
	}

	// 并发提交同名标题时先抢占 slug，唯一索引兜底
	lockKey := consts.SlugReserveLock + slug
	lockUUID := uuid.NewString()
	locked, err := redis.TryLock(ctx, lockKey, lockUUID, 5*time.Second, 0)
	if err != nil {
		return nil, UnExpectedError
	}
	if !locked {
		return nil, ErrSlugExist
	}
	defer redis.UnLock(ctx, lockKey, lockUUID)

	var hdelKeys []string
	for i := range postDTO.Sections {
		if err := processSection(ctx, &postDTO.Sections[i], &hdelKeys); err != nil {
			return nil, err
		}
	}

	post := &mongo.Post{
		UserID:   userID,
		Title:    postDTO.Title,
		Slug:     slug,
		Category: postDTO.Category,
	}
	if err := copier.Copy(&post.Sections, &postDTO.Sections); err != nil {
		return nil, err
	}

	if err := s.postRepo.CreatePost(ctx, post); err != nil {
		if errors.Is(err, mongo.ErrSlugTaken) {
			return nil, ErrSlugExist
		}
		log.ErrorContext(ctx, "create post failed", "error", err, "slug", slug)
		return nil, UnExpectedError
	}

	if len(hdelKeys) > 0 {
		go func(keys []string) {
			_ = redis.HDel(context.Background(), consts.MediaTempKey, keys...)
		}(hdelKeys)
	}

	s.publishEvent(ctx, kafka.PostEventCreated, post)

	return s.toPostDTO(ctx, post)
}

// GetPostBySlug 按 slug 获取帖子详情，带短 TTL 缓存
func (s *postServiceImpl) GetPostBySlug(ctx context.Context, slug string) (*dto.PostDTO, error) {
	cacheKey := consts.PostSlugKey + slug
	if cached, err := redis.GetValue(ctx, cacheKey); err == nil && cached != "" {
		var post mongo.Post
		if err = json.Unmarshal([]byte(cached), &post); err == nil {
			return s.toPostDTO(ctx, &post)
		}
		_ = redis.DeleteKey(ctx, cacheKey)
	}

	post, err := s.postRepo.GetPostBySlug(ctx, slug)
	if err != nil {
		log.ErrorContext(ctx, "get post by slug failed", "error", err, "slug", slug)
		return nil, UnExpectedError
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	if raw, err := json.Marshal(post); err == nil {
		_ = redis.SetWithExpiration(ctx, cacheKey, string(raw), postSlugCacheTTL)
	}

	return s.toPostDTO(ctx, post)
}

// ListPosts 列表查询
// 带 searchTerm 时走 ES 全文检索，否则走 Mongo 条件查询；统计字段始终取自 Mongo
func (s *postServiceImpl) ListPosts(ctx context.Context, listDTO *dto.PostListDTO) (*dto.PostListResultDTO, error) {
	limit := listDTO.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = 9
	}
	skip := listDTO.StartIndex
	if skip < 0 {
		skip = 0
	}

	noFilter := listDTO.UserID == 0 && listDTO.Category == "" &&
		listDTO.Slug == "" && listDTO.PostID == "" && listDTO.Order != "asc"

	var posts []*mongo.Post
	var err error
	switch {
	case listDTO.SearchTerm != "":
		posts, err = s.searchPosts(ctx, listDTO.SearchTerm, skip, limit)
	case noFilter:
		// 默认流走 ES 最新索引，索引不可用时退回 Mongo
		posts, err = s.latestPosts(ctx, skip, limit)
		if err != nil {
			log.WarnContext(ctx, "latest feed from index failed, falling back to mongo", "error", err)
			posts, err = s.postRepo.ListPosts(ctx, &mongo.PostQuery{Skip: skip, Limit: limit})
		}
	default:
		posts, err = s.postRepo.ListPosts(ctx, &mongo.PostQuery{
			UserID:    listDTO.UserID,
			Category:  listDTO.Category,
			Slug:      listDTO.Slug,
			PostID:    listDTO.PostID,
			Skip:      skip,
			Limit:     limit,
			Ascending: listDTO.Order == "asc",
		})
	}
	if err != nil {
		log.ErrorContext(ctx, "list posts failed", "error", err)
		return nil, UnExpectedError
	}

	total, err := s.postRepo.CountPosts(ctx)
	if err != nil {
		return nil, UnExpectedError
	}
	lastMonth, err := s.postRepo.CountPostsSince(ctx, monthAgo())
	if err != nil {
		return nil, UnExpectedError
	}

	items, err := s.batchToPostDTO(ctx, posts)
	if err != nil {
		return nil, err
	}

	return &dto.PostListResultDTO{
		Posts:          items,
		TotalPosts:     total,
		LastMonthPosts: lastMonth,
	}, nil
}

// UpdatePostContent 更新帖子，标题变更会重新派生 slug
func (s *postServiceImpl) UpdatePostContent(ctx context.Context, userID uint64, isAdmin bool, postID string, postDTO *dto.PostBaseDTO) (*dto.PostDTO, error) {
	if err := validatePostBase(postDTO); err != nil {
		return nil, err
	}

	oldPost, err := s.postRepo.GetPostById(ctx, postID)
	if err != nil {
		return nil, UnExpectedError
	}
	if oldPost == nil {
		return nil, ErrPostNotFound
	}
	if oldPost.UserID != userID && !isAdmin {
		return nil, ForbiddenError
	}

	// 新提交里不存在的旧图片对象要从正式桶清掉
	newImageKeys := make(map[string]struct{})
	for _, sec := range postDTO.Sections {
		if sec.Kind == consts.SectionKindImage {
			newImageKeys[sec.Content] = struct{}{}
		}
	}
	var toDeleteKeys []string
	oldImageKeys := make(map[string]struct{})
	for _, sec := range oldPost.Sections {
		if sec.Kind != consts.SectionKindImage {
			continue
		}
		oldImageKeys[sec.Content] = struct{}{}
		if _, exists := newImageKeys[sec.Content]; !exists {
			toDeleteKeys = append(toDeleteKeys, sec.Content)
		}
	}

	var hdelKeys []string
	for i := range postDTO.Sections {
		sec := &postDTO.Sections[i]
		if sec.Kind != consts.SectionKindImage {
			continue
		}
		// 沿用旧帖的对象无需再走暂存校验
		if _, exists := oldImageKeys[sec.Content]; exists {
			continue
		}
		if err = processSection(ctx, sec, &hdelKeys); err != nil {
			return nil, err
		}
	}

	oldSlug := oldPost.Slug
	oldPost.Title = postDTO.Title
	oldPost.Category = postDTO.Category
	oldPost.Slug = util.Slugify(postDTO.Title)
	oldPost.Sections = oldPost.Sections[:0]
	if err = copier.Copy(&oldPost.Sections, &postDTO.Sections); err != nil {
		return nil, err
	}

	if err = s.postRepo.UpdatePost(ctx, oldPost); err != nil {
		if errors.Is(err, mongo.ErrSlugTaken) {
			return nil, ErrSlugExist
		}
		log.ErrorContext(ctx, "update post failed", "error", err, "postId", postID)
		return nil, UnExpectedError
	}

	_ = redis.DeleteKey(ctx, consts.PostSlugKey+oldSlug)
	_ = redis.DeleteKey(ctx, consts.PostSlugKey+oldPost.Slug)

	go func() {
		bgCtx := context.Background()
		for _, key := range toDeleteKeys {
			_ = minio.DeleteFile(bgCtx, key)
		}
		if len(hdelKeys) > 0 {
			_ = redis.HDel(bgCtx, consts.MediaTempKey, hdelKeys...)
		}
	}()

	s.publishEvent(ctx, kafka.PostEventUpdated, oldPost)

	return s.toPostDTO(ctx, oldPost)
}

// DeletePost 删除帖子
func (s *postServiceImpl) DeletePost(ctx context.Context, userID uint64, isAdmin bool, postID string) error {
	post, err := s.postRepo.GetPostById(ctx, postID)
	if err != nil {
		return UnExpectedError
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.UserID != userID && !isAdmin {
		return ForbiddenError
	}

	if err = s.postRepo.DeletePost(ctx, postID); err != nil {
		log.ErrorContext(ctx, "delete post failed", "error", err, "postId", postID)
		return UnExpectedError
	}

	_ = redis.DeleteKey(ctx, consts.PostSlugKey+post.Slug)

	go func(sections []mongo.PostSection) {
		bgCtx := context.Background()
		for _, sec := range sections {
			if sec.Kind == consts.SectionKindImage {
				_ = minio.DeleteFile(bgCtx, sec.Content)
			}
		}
	}(post.Sections)

	s.publishEvent(ctx, kafka.PostEventDeleted, post)

	return nil
}

// searchPosts 先查 ES 拿命中 ID，再回 Mongo 取正文，保持返回结构一致
func (s *postServiceImpl) searchPosts(ctx context.Context, keyword string, from, size int) ([]*mongo.Post, error) {
	hits, err := s.postESRepo.SearchPosts(ctx, keyword, from, size)
	if err != nil {
		return nil, err
	}
	return s.hydrateHits(ctx, hits)
}

// latestPosts 无过滤条件的默认流，按更新时间取 ES 最新文档
func (s *postServiceImpl) latestPosts(ctx context.Context, from, size int) ([]*mongo.Post, error) {
	hits, err := s.postESRepo.GetLatestPosts(ctx, from, size)
	if err != nil {
		return nil, err
	}
	return s.hydrateHits(ctx, hits)
}

func (s *postServiceImpl) hydrateHits(ctx context.Context, hits []*es.PostES) ([]*mongo.Post, error) {
	posts := make([]*mongo.Post, 0, len(hits))
	for _, hit := range hits {
		post, err := s.postRepo.GetPostById(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		if post == nil {
			// 索引落后于删除，跳过即可
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *postServiceImpl) publishEvent(ctx context.Context, eventType string, post *mongo.Post) {
	event := &kafka.PostEvent{
		Type:      eventType,
		PostID:    post.ID.Hex(),
		UserID:    post.UserID,
		Title:     post.Title,
		Slug:      post.Slug,
		Category:  post.Category,
		CreatedAt: post.CreatedAt.Unix(),
		UpdatedAt: post.UpdatedAt.Unix(),
	}
	if eventType != kafka.PostEventDeleted {
		for _, sec := range post.Sections {
			event.Sections = append(event.Sections, kafka.PostEventSection{
				Kind:    sec.Kind,
				Content: sec.Content,
				Order:   sec.Order,
			})
		}
	}
	if err := s.producer.PublishPostEvent(event); err != nil {
		// 主流程不因索引事件失败而回滚
		log.ErrorContext(ctx, "publish post event failed", "error", err, "type", eventType, "postId", event.PostID)
	}
}

// toPostDTO 组装返回体，图片段落的 content 替换为公网地址
func (s *postServiceImpl) toPostDTO(ctx context.Context, post *mongo.Post) (*dto.PostDTO, error) {
	out := &dto.PostDTO{
		ID:        post.ID.Hex(),
		Title:     post.Title,
		Slug:      post.Slug,
		Category:  post.Category,
		UserID:    post.UserID,
		CreatedAt: post.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: post.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if err := copier.Copy(&out.Sections, &post.Sections); err != nil {
		return nil, err
	}
	for i := range out.Sections {
		if out.Sections[i].Kind == consts.SectionKindImage {
			out.Sections[i].Content = minio.GetPublicURL(out.Sections[i].Content)
		}
	}

	s.fillAuthor(ctx, out, post.UserID)

	return out, nil
}

func (s *postServiceImpl) batchToPostDTO(ctx context.Context, posts []*mongo.Post) ([]*dto.PostDTO, error) {
	userIDs := make([]uint64, 0, len(posts))
	seen := make(map[uint64]struct{})
	for _, post := range posts {
		if _, ok := seen[post.UserID]; !ok {
			seen[post.UserID] = struct{}{}
			userIDs = append(userIDs, post.UserID)
		}
	}

	userMap := make(map[uint64]*model.User, len(userIDs))
	if len(userIDs) > 0 {
		users, err := s.userRepo.GetUserByIds(ctx, userIDs)
		if err != nil {
			log.WarnContext(ctx, "batch load authors failed", "error", err)
		} else {
			for _, user := range users {
				userMap[user.ID] = user
			}
		}
	}

	out := make([]*dto.PostDTO, len(posts))
	for i, post := range posts {
		item := &dto.PostDTO{
			ID:        post.ID.Hex(),
			Title:     post.Title,
			Slug:      post.Slug,
			Category:  post.Category,
			UserID:    post.UserID,
			CreatedAt: post.CreatedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt: post.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := copier.Copy(&item.Sections, &post.Sections); err != nil {
			return nil, err
		}
		for j := range item.Sections {
			if item.Sections[j].Kind == consts.SectionKindImage {
				item.Sections[j].Content = minio.GetPublicURL(item.Sections[j].Content)
			}
		}
		applyAuthor(item, userMap[post.UserID])
		out[i] = item
	}
	return out, nil
}

func (s *postServiceImpl) fillAuthor(ctx context.Context, out *dto.PostDTO, userID uint64) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		log.WarnContext(ctx, "load author failed", "error", err, "userId", userID)
	}
	applyAuthor(out, user)
}

func applyAuthor(out *dto.PostDTO, user *model.User) {
	if user == nil {
		out.Nickname = "未知用户"
		out.AvatarURL = minio.GetPublicURL("default_avatar.png")
		return
	}
	if user.Nickname != "" {
		out.Nickname = user.Nickname
	} else {
		out.Nickname = "用户_" + strconv.FormatUint(user.ID, 10)
	}
	if user.AvatarURL != "" {
		out.AvatarURL = minio.GetPublicURL(user.AvatarURL)
	} else {
		out.AvatarURL = minio.GetPublicURL("default_avatar.png")
	}
}

func validatePostBase(postDTO *dto.PostBaseDTO) error {
	if strings.TrimSpace(postDTO.Title) == "" || len(postDTO.Sections) == 0 {
		return ErrTitleRequired
	}
	if postDTO.Category == "" {
		postDTO.Category = consts.CategoryDefault
	}
	if _, ok := consts.PostCategories[postDTO.Category]; !ok {
		return ErrCategoryInvalid
	}
	for _, sec := range postDTO.Sections {
		if _, ok := consts.SectionKinds[sec.Kind]; !ok {
			return ErrSectionKindInvalid
		}
		if strings.TrimSpace(sec.Content) == "" {
			return ErrTitleRequired
		}
	}
	return nil
}

// processSection 图片段落对照暂存元数据校验并搬运到正式桶
func processSection(ctx context.Context, sectionDTO *dto.SectionDTO, hdelKeys *[]string) error {
	if sectionDTO.Kind != consts.SectionKindImage {
		return nil
	}

	val, err := redis.HGet(ctx, consts.MediaTempKey, sectionDTO.Content)
	if err != nil || val == "" {
		log.WarnContext(ctx, "media resource not found in temp cache", "object", sectionDTO.Content)
		return ErrFileNotExist
	}

	size, err := minio.StatTempObject(ctx, sectionDTO.Content)
	if err != nil {
		log.WarnContext(ctx, "stat temp object failed", "error", err, "object", sectionDTO.Content)
		return ErrFileNotExist
	}
	var meta dto.MediaTempMetadata
	if err = json.Unmarshal([]byte(val), &meta); err != nil {
		log.ErrorContext(ctx, "unmarshal media meta failed", "error", err, "object", sectionDTO.Content)
		return UnExpectedError
	}
	if meta.MaxSize > 0 && size > meta.MaxSize {
		// 直传绕过了声明的大小上限，拒绝发布
		_ = minio.DeleteTempFile(ctx, sectionDTO.Content)
		return ErrFileTooLarge
	}

	if err = minio.PromoteObject(ctx, sectionDTO.Content); err != nil {
		log.ErrorContext(ctx, "promote temp object failed", "error", err, "object", sectionDTO.Content)
		return UnExpectedError
	}

	*hdelKeys = append(*hdelKeys, sectionDTO.Content)
	return nil
}

func monthAgo() time.Time {
	return time.Now().AddDate(0, -1, 0)
}
