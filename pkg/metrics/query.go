// Package metrics queries aggregated usage data back out of Prometheus.
// The write side lives in the capability metrics middleware; this service
// is the read side used for cost reporting.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// ProviderMetrics is the aggregated usage of one provider, optionally
// broken down by model.
type ProviderMetrics struct {
	Provider         string  `json:"provider"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost_usd"`
}

// QueryService queries usage metrics from a Prometheus server.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetProviderMetrics aggregates token and cost metrics for one provider
// across all models and runs.
func (q *QueryService) GetProviderMetrics(ctx context.Context, provider string) (*ProviderMetrics, error) {
	metrics := &ProviderMetrics{Provider: provider}

	var err error
	if metrics.PromptTokens, err = q.sumQuery(ctx,
		fmt.Sprintf(`sum(agent_tokens_total{provider=%q, type="prompt"})`, provider)); err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	if metrics.CompletionTokens, err = q.sumQuery(ctx,
		fmt.Sprintf(`sum(agent_tokens_total{provider=%q, type="completion"})`, provider)); err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	cost, err := q.floatQuery(ctx, fmt.Sprintf(`sum(agent_costs_total{provider=%q})`, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to query total cost: %w", err)
	}
	metrics.TotalCost = cost

	return metrics, nil
}

// GetProviderMetricsByModel breaks one provider's usage down per model.
func (q *QueryService) GetProviderMetricsByModel(ctx context.Context, provider string) (map[string]*ProviderMetrics, error) {
	result := make(map[string]*ProviderMetrics)

	modelsResult, _, err := q.queryAPI.Query(ctx,
		fmt.Sprintf(`group by (model) (agent_tokens_total{provider=%q})`, provider), time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	var models []string
	if vector, ok := modelsResult.(model.Vector); ok {
		for _, sample := range vector {
			if name, ok := sample.Metric["model"]; ok {
				models = append(models, string(name))
			}
		}
	}

	for _, modelName := range models {
		metrics := &ProviderMetrics{Provider: provider}

		if metrics.PromptTokens, err = q.sumQuery(ctx,
			fmt.Sprintf(`sum(agent_tokens_total{provider=%q, model=%q, type="prompt"})`, provider, modelName)); err != nil {
			return nil, fmt.Errorf("failed to query prompt tokens for model %s: %w", modelName, err)
		}
		if metrics.CompletionTokens, err = q.sumQuery(ctx,
			fmt.Sprintf(`sum(agent_tokens_total{provider=%q, model=%q, type="completion"})`, provider, modelName)); err != nil {
			return nil, fmt.Errorf("failed to query completion tokens for model %s: %w", modelName, err)
		}
		metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

		cost, err := q.floatQuery(ctx,
			fmt.Sprintf(`sum(agent_costs_total{provider=%q, model=%q})`, provider, modelName))
		if err != nil {
			return nil, fmt.Errorf("failed to query cost for model %s: %w", modelName, err)
		}
		metrics.TotalCost = cost

		result[modelName] = metrics
	}

	return result, nil
}

func (q *QueryService) sumQuery(ctx context.Context, query string) (int64, error) {
	v, err := q.floatQuery(ctx, query)
	return int64(v), err
}

func (q *QueryService) floatQuery(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}
