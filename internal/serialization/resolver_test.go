package serialization

import (
	"testing"

	"github.com/moamenhredeen/restbind/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		domain    Domain
		value     models.SerializationOverride
		operation models.SerializationOverride
		surface   models.SerializationOverride
		want      models.SerializationMethod
	}{
		{"body default", Body, models.Unset, models.Unset, models.Unset, models.Serialized},
		{"query default", Query, models.Unset, models.Unset, models.Unset, models.ToString},
		{"path default", Path, models.Unset, models.Unset, models.Unset, models.ToString},
		{"surface wins over default", Query, models.Unset, models.Unset, models.Use(models.Serialized), models.Serialized},
		{"operation wins over surface", Body, models.Unset, models.Use(models.URLEncoded), models.Use(models.Serialized), models.URLEncoded},
		{"value wins over all", Query, models.Use(models.ToString), models.Use(models.Serialized), models.Use(models.Serialized), models.ToString},
		{"explicit default is still an override", Path, models.Unset, models.Use(models.ToString), models.Use(models.Serialized), models.ToString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.domain, tt.value, tt.operation, tt.surface)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestForOperation(t *testing.T) {
	s := &models.Surface{Serialization: models.SerializationDefaults{Query: models.Use(models.Serialized)}}
	op := &models.Operation{Serialization: models.SerializationDefaults{Body: models.Use(models.URLEncoded)}}

	if got := ForOperation(Query, models.Unset, op, s); got != models.Serialized {
		t.Errorf("expected query to resolve from surface, got %s", got)
	}
	if got := ForOperation(Body, models.Unset, op, s); got != models.URLEncoded {
		t.Errorf("expected body to resolve from operation, got %s", got)
	}
	if got := ForOperation(Path, models.Unset, nil, nil); got != models.ToString {
		t.Errorf("expected path default, got %s", got)
	}
}

func TestDomainAllows(t *testing.T) {
	if Query.Allows(models.URLEncoded) {
		t.Error("query must not allow form encoding")
	}
	if !Body.Allows(models.URLEncoded) {
		t.Error("body must allow form encoding")
	}
	if Body.Allows(models.ToString) {
		t.Error("body must not allow string conversion")
	}
	if Path.Allows(models.SerializationMethod(42)) {
		t.Error("unknown method must not be allowed")
	}
}
