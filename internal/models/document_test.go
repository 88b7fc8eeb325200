package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func strPtr(s string) *string { return &s }

func baseFields() DocumentFields {
	return DocumentFields{
		IDNumber:    "12.345.678-9",
		BirthDate:   "01/01/1990",
		CarryPermit: "Sim",
		License:     "AB",
	}
}

func TestDocumentFields_Merge(t *testing.T) {
	tests := []struct {
		name      string
		overrides FieldOverrides
		want      DocumentFields
	}{
		{
			name:      "no overrides keeps everything",
			overrides: FieldOverrides{},
			want:      baseFields(),
		},
		{
			name:      "single override",
			overrides: FieldOverrides{License: strPtr("D")},
			want: DocumentFields{
				IDNumber:    "12.345.678-9",
				BirthDate:   "01/01/1990",
				CarryPermit: "Sim",
				License:     "D",
			},
		},
		{
			name: "all overrides",
			overrides: FieldOverrides{
				IDNumber:    strPtr("9"),
				BirthDate:   strPtr("02/02/2000"),
				CarryPermit: strPtr("Não"),
				License:     strPtr("C"),
			},
			want: DocumentFields{IDNumber: "9", BirthDate: "02/02/2000", CarryPermit: "Não", License: "C"},
		},
		{
			name:      "empty string override clears value",
			overrides: FieldOverrides{CarryPermit: strPtr("")},
			want: DocumentFields{
				IDNumber:    "12.345.678-9",
				BirthDate:   "01/01/1990",
				CarryPermit: "",
				License:     "AB",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := baseFields()
			got := original.Merge(tt.overrides)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, baseFields(), original, "Merge must not modify the receiver")
		})
	}
}

func TestDocumentRecord_Draft(t *testing.T) {
	record := &DocumentRecord{
		Nickname:       "alice",
		DocumentFields: baseFields(),
		Photo:          []byte{1, 2, 3},
		Serial:         "123-456-789",
		IssuedOn:       "19/10/2026",
		RenderedImage:  []byte{9},
	}

	draft := record.Draft()

	assert.Equal(t, "alice", draft.Nickname)
	assert.Equal(t, baseFields(), draft.Fields)
	assert.Equal(t, []byte{1, 2, 3}, draft.Photo)
}

func TestDocumentRecord_TableNames(t *testing.T) {
	assert.Equal(t, "documents", DocumentRecord{}.TableName())
	assert.Equal(t, "guild_config", GuildConfig{}.TableName())
}

func TestDocumentRecord_BSONInlinesFields(t *testing.T) {
	record := DocumentRecord{Nickname: "alice", DocumentFields: baseFields(), Serial: "123-456-789"}

	raw, err := bson.Marshal(record)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))

	assert.Equal(t, "alice", doc["nickname"])
	assert.Equal(t, "12.345.678-9", doc["id_number"])
	assert.NotContains(t, doc, "documentfields")
}

func TestDocumentRecord_JSONOmitsBinary(t *testing.T) {
	record := DocumentRecord{Nickname: "alice", Photo: []byte{1}, RenderedImage: []byte{2}}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "photo")
	assert.NotContains(t, string(raw), "rendered_image")
	assert.Contains(t, string(raw), `"nickname":"alice"`)
}
