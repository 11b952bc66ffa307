package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestCustomValidators(t *testing.T) {
	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	InitValidators(validate, translator)

	type data struct {
		Code   string `json:"code" validate:"omitempty,alphanum_"`
		Period string `json:"period" validate:"omitempty,period"`
	}

	tests := []struct {
		name    string
		data    data
		wantErr string
	}{
		{name: "code", data: data{Code: "bm_01"}},
		{name: "code with space", data: data{Code: "bm 01"}, wantErr: "code"},
		{name: "code with tab", data: data{Code: "bm\t01"}, wantErr: "code"},
		{name: "code with dash", data: data{Code: "bm-01"}, wantErr: "code"},
		{name: "period", data: data{Period: "2024-03"}},
		{name: "bad period", data: data{Period: "03-2024"}, wantErr: "period"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if verrs, ok := err.(validator.ValidationErrors); assert.True(t, ok) {
				assert.Equal(t, tt.wantErr, verrs[0].Field())
				if tt.wantErr == "code" {
					assert.Equal(t, alphaNumUnderText, verrs[0].Translate(translator))
				}
			}
		})
	}
}
