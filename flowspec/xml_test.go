package flowspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwmdev/trafficcore/model"
)

const validSpec = `<routes>
  <vType id="car" accel="2.6" decel="4.5" emergencyDecel="4.5" maxSpeed="55.5" tau="1.0" minGap="2.5"/>
  <route id="r0" edges="E1 E2 E3"/>
  <flow id="f0" type="car" route="r0" begin="0" end="3600" vehsPerHour="300" departPos="0" departSpeed="random"/>
</routes>`

func TestParseValidSpec(t *testing.T) {
	doc, err := Parse(strings.NewReader(validSpec))
	if !assert.NoError(t, err) {
		return
	}
	assert.Len(t, doc.VTypes, 1)
	if assert.Len(t, doc.Flows, 1) {
		f := doc.Flows[0]
		assert.Equal(t, "f0", f.ID)
		assert.Equal(t, []string{"E1", "E2", "E3"}, f.Route)
		assert.Equal(t, model.TokenRandom, f.DepartSpeed.Kind)
		assert.InDelta(t, 12.0, f.EmitPeriod, 1e-9)
	}
}

func TestParseUndefinedVTypeIsFatal(t *testing.T) {
	spec := `<routes>
  <route id="r0" edges="E1 E2"/>
  <flow id="f0" type="missing" route="r0" begin="0" end="100" vehsPerHour="60"/>
</routes>`
	_, err := Parse(strings.NewReader(spec))
	assert.Error(t, err)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParseUndefinedRouteIsFatal(t *testing.T) {
	spec := `<routes>
  <vType id="car"/>
  <flow id="f0" type="car" route="missing" begin="0" end="100" vehsPerHour="60"/>
</routes>`
	_, err := Parse(strings.NewReader(spec))
	assert.Error(t, err)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSplitEdgesHandlesExtraWhitespace(t *testing.T) {
	spec := `<routes>
  <vType id="car"/>
  <route id="r0" edges="  E1   E2  E3 "/>
  <flow id="f0" type="car" route="r0" begin="0" end="100" vehsPerHour="60"/>
</routes>`
	doc, err := Parse(strings.NewReader(spec))
	if assert.NoError(t, err) && assert.Len(t, doc.Flows, 1) {
		assert.Equal(t, []string{"E1", "E2", "E3"}, doc.Flows[0].Route)
	}
}
