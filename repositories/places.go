package repositories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"place-scout/models"
)

type PlaceRepository struct {
	col *mongo.Collection
}

func NewPlaceRepository(db *mongo.Database) *PlaceRepository {
	return &PlaceRepository{col: db.Collection("places")}
}

// UpsertByExternalID 는 external_id 를 키로 insert-or-update 한다.
// 유니크 인덱스가 유일한 직렬화 지점이므로 동일 external_id 에 대한 동시 업서트는
// 단일 행으로 수렴한다. 이미지 목록은 $addToSet 으로 병합해 경쟁 쓰기가 목록을
// 잘라먹지 않게 한다.
func (r *PlaceRepository) UpsertByExternalID(ctx context.Context, p *models.Place) (*models.Place, error) {
	if p.ExternalID == nil {
		return r.insertManual(ctx, p)
	}

	now := time.Now()
	if p.LastSyncedAt.IsZero() {
		p.LastSyncedAt = now
	}

	set := bson.M{
		"updated_at":     now,
		"name":           p.Name,
		"location":       p.Location,
		"address":        p.Address,
		"category":       p.Category,
		"last_synced_at": p.LastSyncedAt,
	}
	if len(p.CategoryNames) > 0 {
		set["category_names"] = p.CategoryNames
	}
	if p.CoverImageURL != "" {
		set["cover_image_url"] = p.CoverImageURL
	}
	if len(p.AITags) > 0 {
		tags := p.AITags
		if len(tags) > models.MaxAITags {
			tags = tags[:models.MaxAITags]
		}
		set["ai_tags"] = tags
	}
	if len(p.LegacyTags) > 0 {
		set["legacy_tags"] = p.LegacyTags
	}
	// 상세 필드는 채워진 것만 덮어쓴다. 빈 배치 결과가 기존 상세를 지우면 안 된다.
	if p.Rating != nil {
		set["rating"] = *p.Rating
	}
	if p.UserRatingCount != nil {
		set["user_rating_count"] = *p.UserRatingCount
	}
	if len(p.OpeningHours) > 0 {
		set["opening_hours"] = p.OpeningHours
	}
	if p.Phone != nil {
		set["phone"] = *p.Phone
	}
	if p.Website != nil {
		set["website"] = *p.Website
	}
	if p.PriceLevel != nil {
		set["price_level"] = *p.PriceLevel
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	if len(p.ImageURLs) > 0 {
		update["$addToSet"] = bson.M{"image_urls": bson.M{"$each": p.ImageURLs}}
	}

	filter := bson.M{"external_id": *p.ExternalID}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.Place
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// insertManual 은 external_id 가 없는 수동 입력 레코드를 단순 삽입한다.
func (r *PlaceRepository) insertManual(ctx context.Context, p *models.Place) (*models.Place, error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return p, nil
}

// UpsertMany upserts each place and returns the converged rows.
// 개별 실패는 건너뛰고 첫 에러를 함께 반환한다 (부분 성공 허용).
func (r *PlaceRepository) UpsertMany(ctx context.Context, places []*models.Place) ([]*models.Place, error) {
	out := make([]*models.Place, 0, len(places))
	var firstErr error
	for _, p := range places {
		saved, err := r.UpsertByExternalID(ctx, p)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, saved)
	}
	return out, firstErr
}

// FindByExternalID returns a place by its upstream identifier
func (r *PlaceRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Place, error) {
	var p models.Place
	if err := r.col.FindOne(ctx, bson.M{"external_id": externalID}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID returns a place by ObjectID
func (r *PlaceRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Place, error) {
	var p models.Place
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ExistingExternalIDs 는 주어진 id 집합 중 이미 캐시된 부분집합을 돌려준다.
func (r *PlaceRepository) ExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(externalIDs))
	if len(externalIDs) == 0 {
		return existing, nil
	}

	cur, err := r.col.Find(ctx,
		bson.M{"external_id": bson.M{"$in": externalIDs}},
		options.Find().SetProjection(bson.M{"external_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ExternalID string `bson:"external_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		existing[row.ExternalID] = struct{}{}
	}
	return existing, cur.Err()
}

// QueryByIntent 는 구조화된 의도로 캐시를 조회한다.
// 정렬은 (텍스트 스코어 desc) → last_synced_at desc → _id asc 로,
// 동일한 의도와 캐시 상태에 대해 결정적이다.
func (r *PlaceRepository) QueryByIntent(ctx context.Context, intent models.SearchIntent, limit int) ([]models.Place, error) {
	if limit <= 0 {
		limit = 5
	}

	filter := bson.M{}
	if intent.Category != "" {
		filter["category"] = intent.Category
	}
	if intent.Locality != "" {
		filter["address"] = bson.M{"$regex": regexp.QuoteMeta(intent.Locality), "$options": "i"}
	}

	opts := options.Find().SetLimit(int64(limit))
	freeText := strings.TrimSpace(intent.FreeText)
	if freeText != "" {
		filter["$text"] = bson.M{"$search": freeText}
		opts.SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}})
		opts.SetSort(bson.D{
			{Key: "score", Value: bson.M{"$meta": "textScore"}},
			{Key: "last_synced_at", Value: -1},
			{Key: "_id", Value: 1},
		})
	} else {
		opts.SetSort(bson.D{
			{Key: "last_synced_at", Value: -1},
			{Key: "_id", Value: 1},
		})
	}

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Place
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
