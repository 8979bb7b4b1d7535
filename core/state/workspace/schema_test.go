package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfig(t *testing.T) {
	valid := []Config{
		{Type: TypeJupyter},
		{Type: TypeRStudio},
		{Type: TypeProxy},
		{Type: TypeRestful, Function: "main"},
		{Type: TypeCron, Script: "job.py"},
		{Type: TypeCustom, Command: "python app.py"},
	}
	for _, cfg := range valid {
		assert.NoError(t, ValidateConfig(cfg), "config %+v", cfg)
	}

	invalid := []Config{
		{},
		{Type: "mainframe"},
		{Type: TypeCustom},
		{Type: TypeRestful},
		{Type: TypeCron},
	}
	for _, cfg := range invalid {
		err := ValidateConfig(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "config %+v", cfg)
	}
}
