package selector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/xpro-storefront/internal/catalog"
	"github.com/noah-isme/xpro-storefront/internal/common"
)

func fixtures() []catalog.Product {
	return []catalog.Product{
		{
			ID: 1, Title: "Data Science", ProductType: catalog.ProductTypeCourseRun,
			LatestVersion: catalog.ProductVersion{ID: 10, Type: catalog.ProductTypeCourseRun, Courses: []catalog.Course{
				{ID: 100, Title: "Data Science", Runs: []catalog.Run{
					{ID: 1000, Title: "Fall", ProductID: 1},
					{ID: 1001, Title: "Spring", ProductID: 5},
				}},
			}},
		},
		{
			ID: 2, Title: "Leadership", ProductType: catalog.ProductTypeCourseRun,
			LatestVersion: catalog.ProductVersion{ID: 20, Type: catalog.ProductTypeCourseRun, Courses: []catalog.Course{
				{ID: 200, Title: "Leadership", Runs: []catalog.Run{{ID: 2000, ProductID: 7}}},
			}},
		},
		{ID: 3, Title: "Systems Program", ProductType: catalog.ProductTypeProgram,
			LatestVersion: catalog.ProductVersion{ID: 30, Type: catalog.ProductTypeProgram}},
	}
}

func TestProductTypeChangeClearsRun(t *testing.T) {
	var emitted []Selection
	s := New(fixtures(), func(sel Selection) { emitted = append(emitted, sel) })

	require.NoError(t, s.SelectProductType(catalog.ProductTypeCourseRun))
	require.NoError(t, s.SelectProduct(1))
	require.NoError(t, s.SelectRun(1001))
	require.Equal(t, StepRun, s.Step())
	require.Equal(t, Selection{ProductID: 5, OK: true}, s.Value())

	require.NoError(t, s.SelectProductType(catalog.ProductTypeProgram))
	require.Equal(t, StepProductType, s.Step())
	require.Zero(t, s.RunID())
	_, ok := s.Product()
	require.False(t, ok)
	require.Equal(t, Selection{}, emitted[len(emitted)-1])
}

func TestSelectProductClearsRunAndAutoSelectsSingleRun(t *testing.T) {
	s := New(fixtures(), nil)
	require.NoError(t, s.SelectProductType(catalog.ProductTypeCourseRun))

	require.NoError(t, s.SelectProduct(1))
	require.Zero(t, s.RunID())
	require.False(t, s.Value().OK)

	require.NoError(t, s.SelectProduct(2))
	require.Equal(t, 2000, s.RunID())
	require.Equal(t, Selection{ProductID: 7, OK: true}, s.Value())
}

func TestSelectProgramEmitsProductID(t *testing.T) {
	s := New(fixtures(), nil)
	require.NoError(t, s.SelectProductType(catalog.ProductTypeProgram))
	require.Len(t, s.Options(), 1)
	require.NoError(t, s.SelectProduct(3))
	require.Equal(t, Selection{ProductID: 3, OK: true}, s.Value())
	require.Equal(t, StepProduct, s.Step())

	err := s.SelectRun(1000)
	v, ok := common.AsValidation(err)
	require.True(t, ok)
	require.NotEmpty(t, v.Field(FieldProduct))
}

func TestSelectUnknownIDs(t *testing.T) {
	s := New(fixtures(), nil)

	_, ok := common.AsValidation(s.SelectProduct(1))
	require.True(t, ok, "product before type")

	_, ok = common.AsValidation(s.SelectProductType("bundle"))
	require.True(t, ok)

	require.NoError(t, s.SelectProductType(catalog.ProductTypeCourseRun))
	v, ok := common.AsValidation(s.SelectProduct(3))
	require.True(t, ok, "program id under course type")
	require.NotEmpty(t, v.Field(FieldProduct))

	require.NoError(t, s.SelectProduct(1))
	v, ok = common.AsValidation(s.SelectRun(2000))
	require.True(t, ok, "run of another course")
	require.NotEmpty(t, v.Field(FieldRun))
}

func TestReset(t *testing.T) {
	s := New(fixtures(), nil)
	require.NoError(t, s.SelectProductType(catalog.ProductTypeProgram))
	require.NoError(t, s.SelectProduct(3))
	s.Reset()
	require.Equal(t, StepNone, s.Step())
	require.False(t, s.Value().OK)
}
