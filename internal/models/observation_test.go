package models

import (
	"testing"
	"time"
)

func TestParseMeasurementTime(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "valid timestamp",
			token: "2020070114",
			want:  time.Date(2020, time.July, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "midnight hour",
			token: "1950010100",
			want:  time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "date without hour",
			token:   "20200701",
			wantErr: true,
		},
		{
			name:    "not a timestamp",
			token:   "MESS_DATUM",
			wantErr: true,
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMeasurementTime(tt.token)

			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMeasurementTime() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				validationErr, ok := err.(*ValidationError)
				if !ok {
					t.Fatalf("error type = %T, want *ValidationError", err)
				}
				if validationErr.IsTransient() {
					t.Error("ValidationError should not be transient")
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseMeasurementTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrecipitationTypeClassification(t *testing.T) {
	tests := []struct {
		name     string
		code     PrecipitationType
		wantRain bool
		wantSnow bool
	}{
		{"no precipitation", PrecipitationNone, false, false},
		{"rain only (pre-1979)", PrecipitationRainOnly, true, false},
		{"unknown form", PrecipitationUnknownForm, false, false},
		{"rain", PrecipitationRain, true, false},
		{"snow", PrecipitationSnow, false, true},
		{"sleet counts as both", PrecipitationSleet, true, true},
		{"not measurable", PrecipitationNotMeasurable, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.IsRain(); got != tt.wantRain {
				t.Errorf("IsRain() = %v, want %v", got, tt.wantRain)
			}
			if got := tt.code.IsSnow(); got != tt.wantSnow {
				t.Errorf("IsSnow() = %v, want %v", got, tt.wantSnow)
			}
		})
	}
}

func TestParsePrecipitationType(t *testing.T) {
	for _, code := range []int{0, 1, 4, 6, 7, 8, 9} {
		if _, err := ParsePrecipitationType(code); err != nil {
			t.Errorf("ParsePrecipitationType(%d) unexpected error: %v", code, err)
		}
	}

	for _, code := range []int{-1, 2, 3, 5, 10} {
		if _, err := ParsePrecipitationType(code); err == nil {
			t.Errorf("ParsePrecipitationType(%d) should fail", code)
		}
	}
}

func TestCategoryFromCode(t *testing.T) {
	for _, category := range AllCategories {
		got, ok := CategoryFromCode(category.Code())
		if !ok {
			t.Errorf("CategoryFromCode(%q) not found", category.Code())
			continue
		}
		if got != category {
			t.Errorf("CategoryFromCode(%q) = %v, want %v", category.Code(), got, category)
		}
	}

	if _, ok := CategoryFromCode("XX"); ok {
		t.Error("CategoryFromCode(\"XX\") should not match any category")
	}
}
