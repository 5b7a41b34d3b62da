package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/AbbasPi/Maller-API/internal/models"
)

func NewClient(ctx context.Context, addr, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}
	return client, nil
}

type OrderItemDoc struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

type OrderDoc struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	RefCode   string         `json:"ref_code"`
	Status    string         `json:"status"`
	Promo     string         `json:"promo,omitempty"`
	Total     string         `json:"total"`
	Shipping  string         `json:"shipping"`
	City      string         `json:"city,omitempty"`
	Items     []OrderItemDoc `json:"items"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func NewOrderDoc(o *models.Order) OrderDoc {
	doc := OrderDoc{
		ID:        o.ID,
		UserID:    o.UserID,
		RefCode:   o.RefCode,
		Status:    o.Status.Title,
		Total:     o.Total.StringFixed(2),
		Shipping:  o.Shipping.StringFixed(2),
		Items:     make([]OrderItemDoc, 0, len(o.Items)),
		UpdatedAt: o.UpdatedAt,
	}
	if o.Promo != nil {
		doc.Promo = o.Promo.Code
	}
	if o.Address != nil {
		doc.City = o.Address.City.Name
	}
	for _, it := range o.Items {
		item := OrderItemDoc{ProductID: it.ProductID, Quantity: it.Quantity}
		if it.Product != nil {
			item.Name = it.Product.Name
		}
		doc.Items = append(doc.Items, item)
	}
	return doc
}

// OrderIndex keeps checked out orders searchable by reference code.
type OrderIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewOrderIndex(es *elasticsearch.Client, index string) *OrderIndex {
	return &OrderIndex{es: es, index: index}
}

func (x *OrderIndex) IndexOrder(ctx context.Context, o *models.Order) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(NewOrderDoc(o)); err != nil {
		return fmt.Errorf("encode order doc: %w", err)
	}

	res, err := x.es.Index(x.index, &buf,
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(o.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("index order: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index order: %s", res.Status())
	}
	return nil
}

// SearchByRef returns ids of the user's orders whose reference code starts
// with ref.
func (x *OrderIndex) SearchByRef(ctx context.Context, userID uuid.UUID, ref string) ([]uuid.UUID, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id.keyword": userID.String()}},
					map[string]any{"prefix": map[string]any{"ref_code.keyword": strings.ToLower(ref)}},
				},
			},
		},
		"size": 20,
		"sort": []any{map[string]any{"updated_at": "desc"}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search orders: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source OrderDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}
