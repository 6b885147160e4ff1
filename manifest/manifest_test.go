package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bihealth/digestiflow-cli/layout"
)

const runInfoXML = `<?xml version="1.0"?>
<RunInfo>
  <Run Id="210503_M00001_0042_000000000-ABCDE" Number="42">
    <Flowcell>000000000-ABCDE</Flowcell>
    <Instrument>M00001</Instrument>
    <Date>210503</Date>
    <Reads>
      <Read Number="1" NumCycles="76" IsIndexedRead="N" />
      <Read Number="2" NumCycles="8" IsIndexedRead="Y" />
      <Read Number="3" NumCycles="76" IsIndexedRead="N" />
    </Reads>
    <FlowcellLayout LaneCount="1" />
  </Run>
</RunInfo>`

func TestParseRunInfo(t *testing.T) {
	info, err := ParseRunInfo(strings.NewReader(runInfoXML))
	require.NoError(t, err)

	assert.Equal(t, "210503_M00001_0042_000000000-ABCDE", info.RunID)
	assert.Equal(t, 42, info.RunNumber)
	assert.Equal(t, "000000000-ABCDE", info.Flowcell)
	assert.Equal(t, "M00001", info.Instrument)
	assert.Equal(t, "2021-05-03", info.Date)
	assert.Equal(t, 1, info.LaneCount)
	require.Len(t, info.Reads, 3)
	assert.Equal(t, "76T8B76T", StringDescription(info.Reads))
}

func TestParseRunInfoUSDate(t *testing.T) {
	xmlDoc := strings.Replace(runInfoXML, "<Date>210503</Date>", "<Date>5/3/2021 9:15:00 AM</Date>", 1)
	info, err := ParseRunInfo(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	assert.Equal(t, "2021-05-03", info.Date)
}

func TestParseRunInfoBadDate(t *testing.T) {
	xmlDoc := strings.Replace(runInfoXML, "<Date>210503</Date>", "<Date>not-a-date</Date>", 1)
	_, err := ParseRunInfo(strings.NewReader(xmlDoc))
	assert.ErrorIs(t, err, ErrDateUnparseable)
}

func TestParseRunInfoDropsZeroCycleReads(t *testing.T) {
	xmlDoc := strings.Replace(runInfoXML,
		`<Read Number="3" NumCycles="76" IsIndexedRead="N" />`,
		`<Read Number="3" NumCycles="76" IsIndexedRead="N" /><Read Number="4" NumCycles="0" IsIndexedRead="N" />`, 1)
	info, err := ParseRunInfo(strings.NewReader(xmlDoc))
	require.NoError(t, err)
	assert.Len(t, info.Reads, 3)
}

const miSeqRunParamsXML = `<?xml version="1.0"?>
<RunParameters>
  <RTAVersion>2.7.6</RTAVersion>
  <ScanNumber>42</ScanNumber>
  <FCPosition>A</FCPosition>
  <ExperimentName>MyExperiment</ExperimentName>
  <Reads>
    <RunInfoRead Number="1" NumCycles="76" IsIndexedRead="N" />
    <RunInfoRead Number="2" NumCycles="8" IsIndexedRead="Y" />
    <RunInfoRead Number="3" NumCycles="76" IsIndexedRead="N" />
  </Reads>
</RunParameters>`

func TestParseRunParametersMiSeq(t *testing.T) {
	params, err := ParseRunParameters(strings.NewReader(miSeqRunParamsXML), layout.MiSeq)
	require.NoError(t, err)

	assert.Equal(t, "2.7.6", params.RTAVersion)
	assert.Equal(t, 42, params.RunNumber)
	assert.Equal(t, "A", params.FlowcellSlot)
	assert.Equal(t, "MyExperiment", params.ExperimentName)
	assert.Equal(t, "76T8B76T", StringDescription(params.PlannedReads))
}

func TestParseRunParametersMiSeqDefaultSlotAndExperiment(t *testing.T) {
	xmlDoc := strings.Replace(miSeqRunParamsXML, "<FCPosition>A</FCPosition>", "", 1)
	xmlDoc = strings.Replace(xmlDoc, "<ExperimentName>MyExperiment</ExperimentName>", "", 1)
	params, err := ParseRunParameters(strings.NewReader(xmlDoc), layout.MiSeq)
	require.NoError(t, err)
	assert.Equal(t, "A", params.FlowcellSlot)
	assert.Equal(t, "", params.ExperimentName)
}

const miniSeqRunParamsXML = `<?xml version="1.0"?>
<RunParameters>
  <RtaVersion>v3.4.4</RtaVersion>
  <RunNumber>17</RunNumber>
  <PlannedRead1Cycles>76</PlannedRead1Cycles>
  <PlannedIndex1ReadCycles>8</PlannedIndex1ReadCycles>
  <PlannedIndex2ReadCycles>0</PlannedIndex2ReadCycles>
  <PlannedRead2Cycles>76</PlannedRead2Cycles>
</RunParameters>`

func TestParseRunParametersMiniSeq(t *testing.T) {
	params, err := ParseRunParameters(strings.NewReader(miniSeqRunParamsXML), layout.MiniSeq)
	require.NoError(t, err)

	assert.Equal(t, "3.4.4", params.RTAVersion)
	assert.Equal(t, 17, params.RunNumber)
	assert.Equal(t, "A", params.FlowcellSlot)
	require.Len(t, params.PlannedReads, 3)
	assert.Equal(t, "76T8B76T", StringDescription(params.PlannedReads))
	assert.Equal(t, 1, params.PlannedReads[0].Number)
	assert.Equal(t, 2, params.PlannedReads[1].Number)
	assert.Equal(t, 3, params.PlannedReads[2].Number)
}

func TestParseRunParametersNovaSeqSharesMiniSeqRule(t *testing.T) {
	params, err := ParseRunParameters(strings.NewReader(miniSeqRunParamsXML), layout.NovaSeq)
	require.NoError(t, err)
	assert.Equal(t, "76T8B76T", StringDescription(params.PlannedReads))
}

func TestParseRunParametersHiSeqXUnsupported(t *testing.T) {
	_, err := ParseRunParameters(strings.NewReader(miniSeqRunParamsXML), layout.HiSeqX)
	assert.ErrorIs(t, err, ErrLayoutUnsupported)
}

func TestSameReads(t *testing.T) {
	a := []ReadDescription{{Number: 1, NumCycles: 76, IsIndex: false}}
	b := []ReadDescription{{Number: 99, NumCycles: 76, IsIndex: false}}
	assert.True(t, SameReads(a, b), "Number differences must not affect equality")

	c := []ReadDescription{{Number: 1, NumCycles: 75, IsIndex: false}}
	assert.False(t, SameReads(a, c))
}
