// SPDX-License-Identifier: MIT
package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForContentType(t *testing.T) {
	assert.Equal(t, KindXML, KindForContentType("text/xml; charset=utf-8"))
	assert.Equal(t, KindXML, KindForContentType("application/xml"))
	assert.Equal(t, KindHTML, KindForContentType("text/html"))
	assert.Equal(t, KindText, KindForContentType("text/plain"))
	assert.Equal(t, KindText, KindForContentType("application/json"))
	assert.Equal(t, KindText, KindForContentType(""))
}

func TestExtractXMLTag(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
		<Report>
			<Row>
				<EmployeeId>4711</EmployeeId>
				<StartTime>  08:05  </StartTime>
			</Row>
		</Report>`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "08:05", m.Time)
	assert.Equal(t, SourceTag, m.Source)
	assert.Equal(t, "08:05", m.Raw)
}

func TestExtractXMLTagCaseInsensitive(t *testing.T) {
	body := []byte(`<report><starttime>9:07</starttime></report>`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "09:07", m.Time)
	assert.Equal(t, SourceTag, m.Source)
	assert.Equal(t, "9:07", m.Raw)
}

func TestExtractXMLTagPriority(t *testing.T) {
	// TimeIn appears first in document order but EntranceTime wins because
	// the tag list order takes precedence.
	body := []byte(`<r><TimeIn>10:00</TimeIn><EntranceTime>08:15</EntranceTime></r>`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "08:15", m.Time)
	assert.Equal(t, SourceTag, m.Source)
}

func TestExtractXMLInvalidTagFallsThrough(t *testing.T) {
	body := []byte(`<r><EntranceTime>n/a</EntranceTime><StartTime>07:45</StartTime></r>`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "07:45", m.Time)
	assert.Equal(t, SourceTag, m.Source)
}

func TestExtractXMLFlattenedTextFallback(t *testing.T) {
	body := []byte(`<r><Note>Shift begins 7:30 today</Note></r>`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "07:30", m.Time)
	assert.Equal(t, SourceXMLText, m.Source)
	assert.Equal(t, "7:30", m.Raw)
}

func TestExtractXMLTagWithSurroundingText(t *testing.T) {
	body := []byte(`<r><StartTime>Arrived at 08:12 (badge)</StartTime></r>`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "08:12", m.Time)
	assert.Equal(t, SourceTag, m.Source)
	assert.Equal(t, "08:12", m.Raw)
}

func TestExtractHTMLRawScan(t *testing.T) {
	body := []byte(`<html><body><table><tr><td>Entrance</td><td>8:03</td></tr></table></body></html>`)

	m, err := Extract(body, KindHTML)
	require.NoError(t, err)
	assert.Equal(t, "08:03", m.Time)
	assert.Equal(t, SourceRawText, m.Source)
}

func TestExtractPlainText(t *testing.T) {
	m, err := Extract([]byte("employee,date,time\n4711,2026-08-29,07:58\n"), KindText)
	require.NoError(t, err)
	assert.Equal(t, "07:58", m.Time)
	assert.Equal(t, SourceRawText, m.Source)
}

func TestExtractOutOfRange(t *testing.T) {
	_, err := Extract([]byte("checked in at 99:99"), KindText)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestExtractNoTime(t *testing.T) {
	_, err := Extract([]byte("no clock values here"), KindText)
	require.ErrorIs(t, err, ErrNoTime)

	_, err = Extract([]byte(`<r><Empty/></r>`), KindXML)
	require.ErrorIs(t, err, ErrNoTime)
}

func TestExtractFirstMatchWins(t *testing.T) {
	// The scan takes the first time-like substring even when it is not a
	// clock time semantically; the reports offer no way to disambiguate.
	m, err := Extract([]byte("report 12:34 generated, entrance 08:00"), KindText)
	require.NoError(t, err)
	assert.Equal(t, "12:34", m.Time)
}

func TestExtractMalformedXMLStillScans(t *testing.T) {
	body := []byte(`<r><Note>in at 8:20</Note><broken`)

	m, err := Extract(body, KindXML)
	require.NoError(t, err)
	assert.Equal(t, "08:20", m.Time)
	assert.Equal(t, SourceXMLText, m.Source)
}
