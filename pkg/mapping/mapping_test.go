package mapping_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/expression"
	"github.com/aretw0/webflow/pkg/mapping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapper_InputMapping(t *testing.T) {
	hotel, err := mapping.Simple("hotelId", expression.FlowScope)
	require.NoError(t, err)
	nights := mapping.Mapping{
		Source: expression.MustParse("nights"),
		Target: expression.MustParsePath("flowScope.booking.nights"),
		Type:   "int",
	}
	mapper := mapping.NewMapper(hotel, nights)

	flow := domain.NewAttributes()
	target := mapping.ScopesTarget{Scopes: expression.Scopes{Flow: flow}, Default: expression.FlowScope}
	results := mapper.Map(map[string]any{"hotelId": "h-1", "nights": "3"}, target)

	require.NoError(t, results.Err())
	assert.Equal(t, "h-1", flow["hotelId"])
	assert.Equal(t, map[string]any{"nights": 3}, flow["booking"])
	assert.Len(t, results.All, 2)
}

func TestMapper_CollectsAllErrors(t *testing.T) {
	mapper := mapping.NewMapper(
		mapping.Mapping{Source: expression.MustParse("id"), Target: expression.MustParsePath("id"), Required: true},
		mapping.Mapping{Source: expression.MustParse("age"), Target: expression.MustParsePath("age"), Type: "int"},
		mapping.Mapping{Source: expression.MustParse("name"), Target: expression.MustParsePath("name")},
	)

	out := domain.NewAttributes()
	results := mapper.Map(map[string]any{"age": "old", "name": "x"}, mapping.AttributesTarget(out))

	require.True(t, results.HasErrors())
	errs := results.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, mapping.RequiredMissing, errs[0].Kind)
	assert.Equal(t, mapping.TypeConversionError, errs[1].Kind)
	assert.Equal(t, "x", out["name"], "successful mappings are still applied")

	var mErr *mapping.Error
	require.True(t, errors.As(results.Err(), &mErr))
	assert.Contains(t, mErr.Error(), "2 mapping error(s)")
}

func TestMapper_AttributesTargetRejectsScopes(t *testing.T) {
	mapper := mapping.NewMapper(mapping.Mapping{
		Source: expression.MustParse("1"),
		Target: expression.MustParsePath("flowScope.x"),
	})
	results := mapper.Map(nil, mapping.AttributesTarget(domain.NewAttributes()))
	require.Len(t, results.Errors(), 1)
	assert.Equal(t, mapping.AssignmentError, results.Errors()[0].Kind)
}

func TestConvert(t *testing.T) {
	v, err := mapping.Convert("90s", "duration")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, v)

	v, err = mapping.Convert("a,b", "[]string")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	v, err = mapping.Convert(1, "bool")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = mapping.Convert(42, "string")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	_, err = mapping.Convert("x", "complex")
	assert.Error(t, err)
}
