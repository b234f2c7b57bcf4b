package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/starford/daily/internal/apperr"
	"github.com/starford/daily/internal/models"
)

// Adapter encodes the two envelopes onto a Backend. It has no business
// logic beyond rejecting envelopes it cannot trust: an absent, malformed or
// version-mismatched record loads as nil.
type Adapter struct {
	backend Backend
}

// NewAdapter wraps backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// LoadData returns the bulk data envelope, or nil when none is usable.
// The error is non-nil only when the backend itself failed.
func (a *Adapter) LoadData(ctx context.Context) (*models.AppData, error) {
	raw, err := a.backend.Get(ctx, KeyAppData)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return DecodeData(raw), nil
}

// SaveData replaces the bulk data envelope.
func (a *Adapter) SaveData(ctx context.Context, data models.AppData) error {
	data.SchemaVersion = models.DataSchemaVersion
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("storage: encode data: %w", err)
	}
	return a.backend.Put(ctx, KeyAppData, raw)
}

// LoadConfig returns the window config envelope, or nil when none is usable.
func (a *Adapter) LoadConfig(ctx context.Context) (*models.AppConfig, error) {
	raw, err := a.backend.Get(ctx, KeyAppConfig)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return DecodeConfig(raw), nil
}

// SaveConfig replaces the window config envelope.
func (a *Adapter) SaveConfig(ctx context.Context, cfg models.AppConfig) error {
	cfg.SchemaVersion = models.ConfigSchemaVersion
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("storage: encode config: %w", err)
	}
	return a.backend.Put(ctx, KeyAppConfig, raw)
}

// DecodeData validates and decodes a raw data envelope. It returns nil for
// anything other than a current-version envelope whose collections are lists.
func DecodeData(raw []byte) *models.AppData {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	if !hasVersion(fields, models.DataSchemaVersion) {
		return nil
	}
	for _, key := range []string{"tasks", "globals", "taskLogs", "sparks"} {
		if !isList(fields[key]) {
			return nil
		}
	}

	var data models.AppData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	if !data.WidgetAlignMode.Valid() {
		data.WidgetAlignMode = models.AlignRight
	}
	return &data
}

// DecodeConfig validates and decodes a raw config envelope.
func DecodeConfig(raw []byte) *models.AppConfig {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	if !hasVersion(fields, models.ConfigSchemaVersion) {
		return nil
	}

	var visible bool
	if err := json.Unmarshal(fields["widgetVisible"], &visible); err != nil || fields["widgetVisible"] == nil {
		return nil
	}

	cfg := &models.AppConfig{
		SchemaVersion: models.ConfigSchemaVersion,
		WidgetVisible: visible,
	}

	if rawPos, ok := fields["widgetPosition"]; ok {
		var pos struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if bytes.Equal(bytes.TrimSpace(rawPos), []byte("null")) {
			return nil
		}
		if err := json.Unmarshal(rawPos, &pos); err != nil || pos.X == nil || pos.Y == nil {
			return nil
		}
		cfg.WidgetPosition = &models.WidgetPosition{
			X: int(math.Round(*pos.X)),
			Y: int(math.Round(*pos.Y)),
		}
	}
	return cfg
}

func hasVersion(fields map[string]json.RawMessage, want int) bool {
	raw, ok := fields["schemaVersion"]
	if !ok {
		return false
	}
	var version float64
	if err := json.Unmarshal(raw, &version); err != nil {
		return false
	}
	return version == float64(want)
}

func isList(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
