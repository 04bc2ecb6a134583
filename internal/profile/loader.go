package profile

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"chat-orchestrator/internal/domain"
)

//go:embed default_profiles.json
var defaultProfilesJSON []byte

// profileDocument is the on-disk shape of a profile set.
type profileDocument struct {
	Profiles []domain.ProfileDefinition `json:"profiles"`
}

// Loader reads the profile set from the first source that loads, in order:
// the configured blob URL, the inline base64 environment value, then the
// embedded defaults. A failing source is logged and the next one is tried;
// only when every source fails does Load return an error.
type Loader struct {
	httpClient   *http.Client
	blobURL      string
	inlineBase64 string
	logger       *slog.Logger
}

func NewLoader(httpClient *http.Client, blobURL, inlineBase64 string, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient:   httpClient,
		blobURL:      blobURL,
		inlineBase64: inlineBase64,
		logger:       logger,
	}
}

// Load returns the parsed profiles keyed by id and by name, plus the name of
// the source that served them.
func (l *Loader) Load(ctx context.Context) (map[string]domain.ProfileDefinition, string, error) {
	var errs []error

	if l.blobURL != "" {
		profiles, err := l.loadBlob(ctx)
		if err == nil {
			return profiles, "blob", nil
		}
		l.logger.Warn("profile blob source failed, trying next source", slog.Any("error", err))
		errs = append(errs, fmt.Errorf("blob: %w", err))
	}

	if l.inlineBase64 != "" {
		profiles, err := l.loadInline()
		if err == nil {
			return profiles, "inline", nil
		}
		l.logger.Warn("inline profile source failed, trying next source", slog.Any("error", err))
		errs = append(errs, fmt.Errorf("inline: %w", err))
	}

	profiles, err := parseProfiles(defaultProfilesJSON)
	if err != nil {
		errs = append(errs, fmt.Errorf("embedded: %w", err))
		return nil, "", errors.Join(errs...)
	}
	return profiles, "embedded", nil
}

func (l *Loader) loadBlob(ctx context.Context) (map[string]domain.ProfileDefinition, error) {
	raw, err := l.fetchBlob(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch profile blob: %w", err)
	}
	return parseProfiles(raw)
}

func (l *Loader) loadInline() (map[string]domain.ProfileDefinition, error) {
	raw, err := base64.StdEncoding.DecodeString(l.inlineBase64)
	if err != nil {
		return nil, fmt.Errorf("decode inline profiles: %w", err)
	}
	return parseProfiles(raw)
}

func (l *Loader) fetchBlob(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.blobURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from profile blob", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// ValidateDocument parses a profile document and returns the number of
// profiles it defines. Used by the offline config lint in chatctl.
func ValidateDocument(raw []byte) (int, error) {
	var doc profileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("parse profiles: %w", err)
	}
	if _, err := parseProfiles(raw); err != nil {
		return 0, err
	}
	return len(doc.Profiles), nil
}

func parseProfiles(raw []byte) (map[string]domain.ProfileDefinition, error) {
	var doc profileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, fmt.Errorf("profile document contains no profiles")
	}

	byKey := make(map[string]domain.ProfileDefinition, len(doc.Profiles)*2)
	for _, p := range doc.Profiles {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("profile with empty id or name")
		}
		if p.RequiresRAGSettings() && p.RAGSettings == nil {
			return nil, fmt.Errorf("profile %q requires rag settings", p.Name)
		}
		if p.RequiresEndpointSettings() && p.EndpointSettings == nil {
			return nil, fmt.Errorf("profile %q requires endpoint settings", p.Name)
		}
		byKey[p.ID] = p
		byKey[p.Name] = p
	}
	return byKey, nil
}
