package webhook

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/xraph/cachehook/id"
	"github.com/xraph/cachehook/internal/entity"
	"github.com/xraph/cachehook/signature"
)

// Service provides webhook management operations.
type Service struct {
	store   Store
	filters *Filters
	logger  *slog.Logger
}

// NewService creates a webhook service. filters may be nil, in which case
// filter expressions are rejected.
func NewService(store Store, filters *Filters, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, filters: filters, logger: logger}
}

// Create registers a new webhook. It starts enabled.
func (svc *Service) Create(ctx context.Context, in Input) (*Webhook, error) {
	if err := validURL(in.URL); err != nil {
		return nil, err
	}
	if in.Event == "" {
		return nil, &ValidationError{Field: "event", Message: "required"}
	}

	wh := &Webhook{
		Entity:    entity.New(),
		ID:        id.NewWebhookID(),
		Name:      in.Name,
		Event:     in.Event,
		URL:       in.URL,
		Secret:    in.Secret,
		Headers:   in.Headers,
		Enabled:   true,
		RateLimit: max(in.RateLimit, 0),
		Metadata:  in.Metadata,
	}
	if wh.Name == "" {
		wh.Name = in.Event
	}
	if wh.Secret == "" {
		wh.Secret = signature.GenerateSecret()
	}
	if in.Filter != nil {
		if err := svc.checkFilter(*in.Filter); err != nil {
			return nil, err
		}
		wh.Filter = *in.Filter
	}

	if err := svc.store.CreateWebhook(ctx, wh); err != nil {
		return nil, err
	}
	svc.logger.InfoContext(ctx, "webhook created", "webhook_id", wh.ID.String(), "event", wh.Event)
	return wh, nil
}

func (svc *Service) Get(ctx context.Context, whID id.ID) (*Webhook, error) {
	return svc.store.GetWebhook(ctx, whID)
}

// Update applies the non-zero fields of in.
func (svc *Service) Update(ctx context.Context, whID id.ID, in Input) (*Webhook, error) {
	wh, err := svc.store.GetWebhook(ctx, whID)
	if err != nil {
		return nil, err
	}

	if in.URL != "" {
		if err := validURL(in.URL); err != nil {
			return nil, err
		}
		wh.URL = in.URL
	}
	if in.Name != "" {
		wh.Name = in.Name
	}
	if in.Event != "" {
		wh.Event = in.Event
	}
	if in.Headers != nil {
		wh.Headers = in.Headers
	}
	if in.Filter != nil {
		if err := svc.checkFilter(*in.Filter); err != nil {
			return nil, err
		}
		wh.Filter = *in.Filter
	}
	if in.RateLimit >= 0 {
		wh.RateLimit = in.RateLimit
	}
	if in.Metadata != nil {
		wh.Metadata = in.Metadata
	}
	wh.Touch()

	if err := svc.store.UpdateWebhook(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

func (svc *Service) Delete(ctx context.Context, whID id.ID) error {
	return svc.store.DeleteWebhook(ctx, whID)
}

func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Webhook, error) {
	return svc.store.ListWebhooks(ctx, opts)
}

func (svc *Service) SetEnabled(ctx context.Context, whID id.ID, enabled bool) error {
	return svc.store.SetWebhookEnabled(ctx, whID, enabled)
}

// RotateSecret replaces the signing secret and returns the new one.
func (svc *Service) RotateSecret(ctx context.Context, whID id.ID) (string, error) {
	wh, err := svc.store.GetWebhook(ctx, whID)
	if err != nil {
		return "", err
	}

	wh.Secret = signature.GenerateSecret()
	wh.Touch()
	if err := svc.store.UpdateWebhook(ctx, wh); err != nil {
		return "", err
	}
	return wh.Secret, nil
}

func (svc *Service) checkFilter(expr string) error {
	if expr == "" {
		return nil
	}
	if svc.filters == nil {
		return &ValidationError{Field: "filter", Message: "filters are not supported"}
	}
	if err := svc.filters.Compile(expr); err != nil {
		return &ValidationError{Field: "filter", Message: err.Error()}
	}
	return nil
}

func validURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "url", Message: "invalid URL"}
	}
	return nil
}

// ValidationError indicates invalid input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "webhook validation: " + e.Field + ": " + e.Message
}
