package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncforge/ingestion/internal/model"
)

func TestMapperAlternativesAndDottedPaths(t *testing.T) {
	record := map[string]interface{}{
		"variants": []interface{}{
			map[string]interface{}{"price": 19.99},
		},
		"title": "  Widget  ",
	}
	fm := &model.FieldMapping{
		Fields: map[string]model.Rule{
			"price": {SourcePath: "msrp|variants[0].price", TargetField: "price", DataType: model.TypeFloat},
			"title": {SourcePath: "title", TargetField: "title", DataType: model.TypeString, Transform: &model.Transform{Name: "trim"}},
		},
	}

	m := New()
	out, err := m.Map(record, fm)
	require.NoError(t, err)
	require.Equal(t, 19.99, out["price"])
	require.Equal(t, "Widget", out["title"])
}

func TestMapperBuiltinPriceFallback(t *testing.T) {
	record := map[string]interface{}{"sale_price": 12.5}
	fm := &model.FieldMapping{
		Fields: map[string]model.Rule{
			"price": {SourcePath: "price", TargetField: "price", DataType: model.TypeFloat},
		},
	}

	out, err := New().Map(record, fm)
	require.NoError(t, err)
	require.Equal(t, 12.5, out["price"])
}

func TestMapperRequiredFieldMissing(t *testing.T) {
	record := map[string]interface{}{}
	fm := &model.FieldMapping{
		Fields: map[string]model.Rule{
			"price": {SourcePath: "price", TargetField: "price", DataType: model.TypeFloat, Required: true},
		},
	}

	_, err := New().Map(record, fm)
	require.Error(t, err)
	var missing *model.MissingRequiredFieldError
	require.ErrorAs(t, err, &missing)
}

func TestMapperUnknownTransform(t *testing.T) {
	record := map[string]interface{}{"title": "widget"}
	fm := &model.FieldMapping{
		Fields: map[string]model.Rule{
			"title": {SourcePath: "title", TargetField: "title", Transform: &model.Transform{Name: "bogus"}},
		},
	}

	_, err := New().Map(record, fm)
	require.Error(t, err)
	var mapErr *model.MappingError
	require.ErrorAs(t, err, &mapErr)
}

func TestToNumberTransformVariants(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected float64
	}{
		{"$1,234.56", 1234.56},
		{"1.234,56", 1234.56},
		{"(1,234.56)", -1234.56},
		{"€ 19,99", 19.99},
	} {
		f, ok := parseNumberString(tc.in)
		require.True(t, ok, tc.in)
		require.InDelta(t, tc.expected, f, 0.001, tc.in)
	}
}

func TestToBoolTransformVariants(t *testing.T) {
	require.Equal(t, true, toBool("Yes"))
	require.Equal(t, false, toBool("off"))
	require.Equal(t, true, toBool(float64(1)))
	require.Nil(t, toBool("maybe"))
}

func TestDateTimeCoercion(t *testing.T) {
	v := coerceDateTime("2024-01-02T03:04:05Z")
	_, ok := v.(interface{ Unix() int64 })
	require.True(t, ok)

	v2 := coerceDateTime("2024-01-02 03:04:05")
	_, ok2 := v2.(interface{ Unix() int64 })
	require.True(t, ok2)

	v3 := coerceDateTime("not-a-date")
	require.Equal(t, "not-a-date", v3)
}
