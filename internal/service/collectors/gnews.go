package collectors

import (
	"context"
	"fmt"
	"strings"

	"Noesis/internal/domain/models"
	httpclient "Noesis/pkg/http"
)

// GNews pulls recent news articles matching unrest-related queries from the
// GNews search API. One Collect call issues one request per configured query
// sequentially; the API rate limit is low enough that fanning out per query
// is not worth it.
type GNews struct {
	client  *httpclient.Client
	baseURL string
	apiKey  string
	queries []string
	lang    string
	max     int
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

type gnewsResponse struct {
	Articles []gnewsArticle `json:"articles"`
}

func NewGNews(client *httpclient.Client, baseURL, apiKey string, queries []string, lang string, max int) *GNews {
	if baseURL == "" {
		baseURL = "https://gnews.io/api/v4"
	}
	if lang == "" {
		lang = "en"
	}
	if max <= 0 {
		max = 10
	}
	return &GNews{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		queries: queries,
		lang:    lang,
		max:     max,
	}
}

func (g *GNews) Name() string { return "gnews" }

func (g *GNews) Collect(ctx context.Context) ([]models.RawSignal, error) {
	signals := make([]models.RawSignal, 0, g.max*len(g.queries))
	seen := make(map[string]struct{})

	for _, query := range g.queries {
		var resp gnewsResponse
		err := g.client.SendAndParse(ctx, &httpclient.RequestOptions{
			Method: httpclient.MethodGet,
			URL:    g.baseURL + "/search",
			QueryParams: map[string][]string{
				"q":      {query},
				"lang":   {g.lang},
				"max":    {fmt.Sprintf("%d", g.max)},
				"apikey": {g.apiKey},
			},
		}, &resp)
		if err != nil {
			// A single failing query fails the whole source; partial results
			// from earlier queries are discarded so the tally stays honest.
			return nil, fmt.Errorf("gnews query %q: %w", query, err)
		}

		for _, article := range resp.Articles {
			if article.URL != "" {
				if _, dup := seen[article.URL]; dup {
					continue
				}
				seen[article.URL] = struct{}{}
			}
			signals = append(signals, models.RawSignal{
				Platform:  "gnews",
				Content:   strings.TrimSpace(article.Description),
				Author:    article.Source.Name,
				Timestamp: article.PublishedAt,
				Link:      article.URL,
				Extra: map[string]string{
					"title": article.Title,
					"query": query,
				},
			})
		}
	}
	return signals, nil
}
