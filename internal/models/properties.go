package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const PropertiesTable = "properties"

// Property is the slice of the listing record this engine needs: enough to
// resolve the owner of a bookable unit. Full property CRUD lives elsewhere.
type Property struct {
	Id        uuid.UUID `json:"id"`
	HostId    uuid.UUID `json:"host_id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type PropertyRepo interface {
	GetPropertyByID(ctx context.Context, id uuid.UUID) (*Property, error)
}

func (su *SupabaseRepo) GetPropertyByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("invalid property UUID")
	}

	raw, _, err := su.supabaseClient.From(PropertiesTable).
		Select("id,host_id,name,location,status,created_at", "exact", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get property by ID: %v", err)
	}

	// Supabase returns an array even for single results
	var properties []Property
	if err := json.Unmarshal(raw, &properties); err != nil {
		return nil, fmt.Errorf("failed to unmarshal property rows: %v", err)
	}

	if len(properties) == 0 {
		return nil, fmt.Errorf("property %s: %w", id, ErrNotFound)
	}

	return &properties[0], nil
}
