// Package provision implements the one-shot bootstrap that guarantees a
// service user and a named persona exist on the remote backend before any
// chat traffic is sent.
//
// The routine is idempotent: re-runs adopt existing records instead of
// duplicating them, and creation conflicts (another process winning the race)
// are treated as success. The one race it cannot close is two independent
// processes racing the persona list-then-create window; the uniquified-slug
// fallback is the mitigation, not a fix.
package provision

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"replichat/internal/config"
	"replichat/internal/transport"
	"replichat/internal/types"
)

// Result is the outcome of a successful bootstrap: a user-scoped client and
// the uuid of the persona all chat traffic should target.
type Result struct {
	Client    *transport.Client
	PersonaID string
}

type createPersonaRequest struct {
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	ShortDescription string           `json:"shortDescription"`
	Greeting         string           `json:"greeting"`
	OwnerID          string           `json:"ownerID"`
	LLM              types.PersonaLLM `json:"llm"`
}

type createPersonaResponse struct {
	UUID string `json:"uuid"`
}

// Bootstrap runs the full provisioning sequence. Either a complete Result is
// produced or an error is returned; there is no partial success.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := cfg.HTTPTimeout()
	if err != nil {
		return nil, err
	}

	tenantClient, err := transport.New(transport.Config{
		BaseURL:    cfg.API.BaseURL,
		Secret:     cfg.Tenant.Secret,
		APIVersion: cfg.API.Version,
		Timeout:    timeout,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if err := ensureUser(ctx, tenantClient, cfg, logger); err != nil {
		return nil, err
	}

	userClient := tenantClient.WithUser(cfg.Tenant.UserID)

	personaID, err := ensurePersona(ctx, userClient, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("provisioning complete",
		zap.String("user_id", cfg.Tenant.UserID),
		zap.String("persona_id", personaID))

	return &Result{Client: userClient, PersonaID: personaID}, nil
}

// ensureUser guarantees the service user exists. A conflict on create means
// another process created it first and counts as success.
func ensureUser(ctx context.Context, client *transport.Client, cfg *config.Config, logger *zap.Logger) error {
	var existing types.ServiceUser
	err := client.Do(ctx, http.MethodGet, "/users/"+cfg.Tenant.UserID, nil, &existing)
	if err == nil {
		logger.Debug("service user already exists", zap.String("user_id", existing.ID))
		return nil
	}
	if !transport.IsNotFound(err) {
		return fmt.Errorf("failed to look up service user: %w", err)
	}

	user := types.ServiceUser{
		ID:    cfg.Tenant.UserID,
		Email: cfg.Tenant.UserEmail,
		Name:  cfg.Tenant.UserName,
	}
	if err := client.Do(ctx, http.MethodPost, "/users", user, nil); err != nil {
		if transport.IsConflict(err) {
			logger.Debug("service user created concurrently", zap.String("user_id", user.ID))
			return nil
		}
		return fmt.Errorf("failed to create service user: %w", err)
	}
	logger.Info("service user created", zap.String("user_id", user.ID))
	return nil
}

// ensurePersona guarantees a persona exists and returns its uuid. Lookup is
// by slug; on a creation conflict the list is re-scanned, and if the slug is
// still not visible (ownership or visibility race) a uniquified slug is
// created instead.
func ensurePersona(ctx context.Context, client *transport.Client, cfg *config.Config, logger *zap.Logger) (string, error) {
	if uuid, found, err := findPersona(ctx, client, cfg.Persona.Slug); err != nil {
		return "", err
	} else if found {
		logger.Debug("persona already exists",
			zap.String("slug", cfg.Persona.Slug), zap.String("uuid", uuid))
		return uuid, nil
	}

	uuid, err := createPersona(ctx, client, cfg, cfg.Persona.Slug)
	if err == nil {
		logger.Info("persona created",
			zap.String("slug", cfg.Persona.Slug), zap.String("uuid", uuid))
		return uuid, nil
	}
	if !transport.IsConflict(err) {
		return "", fmt.Errorf("failed to create persona: %w", err)
	}

	// Slug taken: a concurrent caller won the race. Adopt theirs if visible.
	if uuid, found, err := findPersona(ctx, client, cfg.Persona.Slug); err != nil {
		return "", err
	} else if found {
		logger.Info("adopting persona created concurrently",
			zap.String("slug", cfg.Persona.Slug), zap.String("uuid", uuid))
		return uuid, nil
	}

	// Conflict but not visible to us. Fall back to a guaranteed-unique slug.
	uniqueSlug := fmt.Sprintf("%s-%d", cfg.Persona.Slug, time.Now().UnixMilli())
	uuid, err = createPersona(ctx, client, cfg, uniqueSlug)
	if err != nil {
		return "", fmt.Errorf("failed to create persona under unique slug %s: %w", uniqueSlug, err)
	}
	logger.Warn("persona slug conflicted but was not visible, created unique slug",
		zap.String("slug", uniqueSlug), zap.String("uuid", uuid))
	return uuid, nil
}

func findPersona(ctx context.Context, client *transport.Client, slug string) (string, bool, error) {
	var page types.PersonaPage
	if err := client.Do(ctx, http.MethodGet, "/replicas", nil, &page); err != nil {
		return "", false, fmt.Errorf("failed to list personas: %w", err)
	}
	for _, p := range page.Items {
		if p.Slug == slug {
			return p.UUID, true, nil
		}
	}
	return "", false, nil
}

func createPersona(ctx context.Context, client *transport.Client, cfg *config.Config, slug string) (string, error) {
	req := createPersonaRequest{
		Name:             cfg.Persona.Name,
		Slug:             slug,
		ShortDescription: cfg.Persona.ShortDescription,
		Greeting:         cfg.Persona.Greeting,
		OwnerID:          cfg.Tenant.UserID,
		LLM: types.PersonaLLM{
			Model:         cfg.Persona.Model,
			SystemMessage: cfg.Persona.SystemMessage,
		},
	}
	var resp createPersonaResponse
	if err := client.Do(ctx, http.MethodPost, "/replicas", req, &resp); err != nil {
		return "", err
	}
	if resp.UUID == "" {
		return "", fmt.Errorf("create persona response missing uuid")
	}
	return resp.UUID, nil
}
