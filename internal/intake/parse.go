package intake

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/Iron-Ham/conflux/internal/conflict"
	"github.com/Iron-Ham/conflux/internal/errors"
)

// Record is the wire shape of one change notification. Resource is a
// "module.entityType" shorthand used when Module or EntityType is empty.
type Record struct {
	TenantID         string     `json:"tenantId"`
	Resource         string     `json:"resource,omitempty"`
	Module           string     `json:"module"`
	EntityType       string     `json:"entityType"`
	EntityID         string     `json:"entityId"`
	Field            string     `json:"field"`
	Operation        string     `json:"operation,omitempty"`
	ServerValue      any        `json:"serverValue"`
	ClientValue      any        `json:"clientValue"`
	ServerModifiedAt *time.Time `json:"serverModifiedAt,omitempty"`
	ClientModifiedAt *time.Time `json:"clientModifiedAt,omitempty"`
	ModifiedBy       string     `json:"modifiedBy,omitempty"`
	ServerVersion    int64      `json:"serverVersion,omitempty"`
	ClientVersion    int64      `json:"clientVersion,omitempty"`
	AffectedUsers    []string   `json:"affectedUsers,omitempty"`
	Dependencies     []string   `json:"dependencies,omitempty"`
}

// Parse decodes data into change events for tenantID. Records without a
// tenant are assigned tenantID; records naming another tenant are kept so
// the detector can reject them.
func Parse(data []byte, tenantID string) ([]conflict.ChangeEvent, error) {
	records, err := decode(data)
	if err != nil {
		return nil, err
	}
	events := make([]conflict.ChangeEvent, 0, len(records))
	for _, r := range records {
		events = append(events, Enrich(r, tenantID))
	}
	return events, nil
}

func decode(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, errors.NewValidationError("invalid change record array").WithCause(err)
		}
		return records, nil
	}

	// One object, or a stream of objects separated by whitespace.
	var records []Record
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var r Record
		err := dec.Decode(&r)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.NewValidationError("invalid change record").
				WithValue(len(records) + 1).WithCause(err)
		}
		records = append(records, r)
	}
}

// Enrich converts a record into a ChangeEvent, filling the tenant, the
// module and entity type from Resource, and the operation when absent.
func Enrich(r Record, tenantID string) conflict.ChangeEvent {
	ev := conflict.ChangeEvent{
		TenantID:         strings.TrimSpace(r.TenantID),
		Module:           strings.TrimSpace(r.Module),
		EntityType:       strings.TrimSpace(r.EntityType),
		EntityID:         strings.TrimSpace(r.EntityID),
		Field:            strings.TrimSpace(r.Field),
		Operation:        conflict.Operation(strings.ToLower(strings.TrimSpace(r.Operation))),
		ServerValue:      r.ServerValue,
		ClientValue:      r.ClientValue,
		ServerModifiedAt: r.ServerModifiedAt,
		ClientModifiedAt: r.ClientModifiedAt,
		ModifiedBy:       r.ModifiedBy,
		ServerVersion:    r.ServerVersion,
		ClientVersion:    r.ClientVersion,
		AffectedUsers:    r.AffectedUsers,
		Dependencies:     r.Dependencies,
	}
	if ev.TenantID == "" {
		ev.TenantID = tenantID
	}
	if module, entity, ok := strings.Cut(r.Resource, "."); ok {
		if ev.Module == "" {
			ev.Module = strings.TrimSpace(module)
		}
		if ev.EntityType == "" {
			ev.EntityType = strings.TrimSpace(entity)
		}
	} else if ev.Module == "" {
		ev.Module = strings.TrimSpace(r.Resource)
	}
	if ev.Operation == "" {
		ev.Operation = InferOperation(ev)
	}
	return ev
}

// InferOperation guesses the operation from the values and field name.
func InferOperation(ev conflict.ChangeEvent) conflict.Operation {
	field := strings.ToLower(ev.Field)
	switch {
	case strings.Contains(field, "permission") || field == "role" || field == "roles" || strings.HasSuffix(field, "_role"):
		return conflict.OpPermission
	case ev.ServerValue == nil && ev.ClientValue != nil:
		return conflict.OpCreate
	case ev.ServerValue != nil && ev.ClientValue == nil:
		return conflict.OpDelete
	default:
		return conflict.OpUpdate
	}
}
