package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"storefront_back_end/internal/models"
)

//
// --- INDEXATION DANS ELASTICSEARCH ---
//

// Index maintient l'index de recherche du catalogue.
// Le stock n'y est pas stocké : les résultats sont rechargés depuis le catalogue.
type Index struct {
	client *elasticsearch.Client
	name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	return &Index{client: client, name: name}
}

type productDoc struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Details string `json:"details"`
}

func (ix *Index) IndexProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(productDoc{ID: p.ID, Name: p.Name, Details: p.Details})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      ix.name,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("indexation produit %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexation produit %d: %s", p.ID, res.String())
	}
	log.Printf("✅ Produit indexé dans Elasticsearch: %s", p.Name)
	return nil
}

func (ix *Index) DeleteProduct(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      ix.name,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("désindexation produit %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("désindexation produit %d: %s", id, res.String())
	}
	return nil
}

// Clear supprime l'index entier ; il est recréé à la prochaine indexation
func (ix *Index) Clear(ctx context.Context) error {
	req := esapi.IndicesDeleteRequest{Index: []string{ix.name}}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return fmt.Errorf("suppression index %s: %w", ix.name, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("suppression index %s: %s", ix.name, res.String())
	}
	return nil
}

//
// --- RECHERCHE DANS ELASTICSEARCH ---
//

// Search retourne les identifiants des produits correspondant à la requête, par pertinence
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	var buf bytes.Buffer
	q := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "details"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{ix.name},
		Body:  &buf,
	}
	res, err := req.Do(ctx, ix.client)
	if err != nil {
		return nil, fmt.Errorf("requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return []int64{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("recherche Elastic: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("décodage réponse Elastic: %w", err)
	}

	ids := make([]int64, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}

// MatchSubstring est la recherche de repli quand Elasticsearch n'est pas configuré
func MatchSubstring(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Product{}
	for _, p := range products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Details), q) {
			out = append(out, p)
		}
	}
	return out
}
