package flow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_FillNeverOverwrites(t *testing.T) {
	var p Profile

	assert.True(t, p.Fill(FieldName, "Jane Doe"))
	assert.False(t, p.Fill(FieldName, "John Smith"))
	assert.False(t, p.Fill(FieldName, ""))
	assert.Equal(t, "Jane Doe", p.Name)

	assert.False(t, p.Fill(FieldPolicyNumber, ""))
	assert.Empty(t, p.PolicyNumber)
}

func TestProfile_GetUsesFieldTable(t *testing.T) {
	p := Profile{Name: "A", PolicyNumber: "B", ContactInfo: "C", InquiryType: "D"}
	want := map[Field]string{
		FieldName:         "A",
		FieldPolicyNumber: "B",
		FieldContactInfo:  "C",
		FieldInquiryType:  "D",
	}
	for f, v := range want {
		assert.Equal(t, v, p.Get(f), f.String())
	}
	assert.Empty(t, p.Get(Field(42)))
}

func TestProfile_CollectedAndComplete(t *testing.T) {
	var p Profile
	assert.Empty(t, p.Collected())
	assert.False(t, p.IsComplete())

	p.Fill(FieldContactInfo, "555-123-4567")
	p.Fill(FieldName, "Jane Doe")
	assert.Equal(t, []Field{FieldName, FieldContactInfo}, p.Collected())
	assert.False(t, p.IsComplete())

	p.Fill(FieldInquiryType, "support")
	assert.True(t, p.IsComplete())
}

func TestProfile_MissingForEscalation(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    []string
	}{
		{"empty", Profile{}, []string{"name", "phone number"}},
		{"name only", Profile{Name: "Jane"}, []string{"phone number"}},
		{"phone only", Profile{ContactInfo: "555-123-4567"}, []string{"name"}},
		{"both", Profile{Name: "Jane", ContactInfo: "555-123-4567"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.MissingForEscalation())
		})
	}
}

func TestField_TextKeys(t *testing.T) {
	data, err := json.Marshal(map[Field]string{FieldPolicyNumber: "POL123"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"policy_number":"POL123"}`, string(data))

	var back map[Field]string
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "POL123", back[FieldPolicyNumber])

	_, ok := ParseField("phone")
	assert.False(t, ok)
}

func TestSession_HistoryAndStats(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	s := NewSession("sess-1", start)
	assert.Equal(t, StateGreeting, s.State)

	s.Append(RoleUser, "hi", ModalityVoice, start.Add(time.Second))
	last := s.Append(RoleAssistant, "hello", ModalityVoice, start.Add(2*time.Second))
	s.Append(RoleUser, "help", ModalityText, start.Add(3*time.Second))

	assert.Equal(t, 1, last.Position)
	require.Len(t, s.Recent(2), 2)
	assert.Equal(t, "hello", s.Recent(2)[0].Content)
	assert.Len(t, s.Recent(0), 3)
	assert.Len(t, s.Recent(10), 3)

	s.Profile.Fill(FieldName, "Jane")
	stats := s.Stats(start.Add(time.Minute))
	assert.Equal(t, 3, stats.MessageCount)
	assert.Equal(t, time.Minute, stats.Duration)
	assert.Equal(t, []Field{FieldName}, stats.CollectedFields)

	clone := s.Clone()
	clone.Append(RoleAssistant, "more", ModalityText, start)
	assert.Len(t, s.History, 3, "clone must not share history")

	s.Reset(start.Add(time.Hour))
	assert.Empty(t, s.History)
	assert.Equal(t, Profile{}, s.Profile)
	assert.Equal(t, "sess-1", s.ID)
}
