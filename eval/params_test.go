package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTimingParams_DDR43200Baseline(t *testing.T) {
	got := DefaultTimingParams()
	want := TimingParams{ParamCL: 22, ParamTRCD: 22, ParamTRP: 22, ParamTRAS: 52}
	assert.Equal(t, want, got)
}

func TestTimingParams_Canonical_FixedOrder(t *testing.T) {
	params := TimingParams{ParamTRAS: 52, ParamCL: 22, ParamTRP: 22, ParamTRCD: 22}
	assert.Equal(t, "CL22_tRCD22_tRP22_tRAS52", params.Canonical())
}

func TestTimingParams_Canonical_PartialSet(t *testing.T) {
	params := TimingParams{ParamTRAS: 40, ParamCL: 18}
	assert.Equal(t, "CL18_tRAS40", params.Canonical())
}

func TestTimingParams_Canonical_Empty(t *testing.T) {
	assert.Equal(t, "unmodified", TimingParams{}.Canonical())
}

func TestTimingParams_Canonical_DistinctSetsDistinctNames(t *testing.T) {
	a := TimingParams{ParamCL: 22, ParamTRCD: 21}
	b := TimingParams{ParamCL: 2, ParamTRCD: 221}
	assert.NotEqual(t, a.Canonical(), b.Canonical())
}

func TestTimingParams_Clone_Independent(t *testing.T) {
	original := DefaultTimingParams()
	clone := original.Clone()
	clone[ParamCL] = 10

	assert.Equal(t, 22, original[ParamCL])
	assert.Equal(t, 10, clone[ParamCL])
}

func TestTimingParams_String(t *testing.T) {
	params := TimingParams{ParamCL: 22, ParamTRAS: 52}
	assert.Equal(t, "{CL=22, tRAS=52}", params.String())
}
