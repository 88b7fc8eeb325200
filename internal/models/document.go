package models

// DocumentFields holds the operator-supplied text fields of an ID card.
type DocumentFields struct {
	IDNumber    string `json:"id_number" bson:"id_number" gorm:"column:id_number"`
	BirthDate   string `json:"birth_date" bson:"birth_date" gorm:"column:birth_date"`
	CarryPermit string `json:"carry_permit" bson:"carry_permit" gorm:"column:carry_permit"`
	License     string `json:"license" bson:"license" gorm:"column:license"`
}

// FieldOverrides carries optional replacements for DocumentFields. A nil
// pointer keeps the existing value.
type FieldOverrides struct {
	IDNumber    *string
	BirthDate   *string
	CarryPermit *string
	License     *string
}

// Merge returns a new field set where every non-nil override replaces the
// corresponding value of f. f is not modified.
func (f DocumentFields) Merge(o FieldOverrides) DocumentFields {
	merged := f
	if o.IDNumber != nil {
		merged.IDNumber = *o.IDNumber
	}
	if o.BirthDate != nil {
		merged.BirthDate = *o.BirthDate
	}
	if o.CarryPermit != nil {
		merged.CarryPermit = *o.CarryPermit
	}
	if o.License != nil {
		merged.License = *o.License
	}
	return merged
}

// DocumentDraft is the operator-controlled part of a record. Serial, issue
// date and rendered image are always derived from it at write time.
type DocumentDraft struct {
	Nickname string
	Fields   DocumentFields
	Photo    []byte
}

// DocumentRecord is a persisted ID card keyed by nickname.
type DocumentRecord struct {
	Nickname       string `json:"nickname" bson:"nickname" gorm:"column:nickname;primaryKey"`
	DocumentFields `bson:",inline" gorm:"embedded"`
	Photo          []byte `json:"-" bson:"photo" gorm:"column:photo"`
	Serial         string `json:"serial" bson:"serial" gorm:"column:serial"`
	IssuedOn       string `json:"issued_on" bson:"issued_on" gorm:"column:issued_on"`
	RenderedImage  []byte `json:"-" bson:"rendered_image" gorm:"column:rendered_image"`
}

// TableName pins the gorm table name
func (DocumentRecord) TableName() string {
	return "documents"
}

// Draft returns the operator-controlled part of the record
func (r *DocumentRecord) Draft() DocumentDraft {
	return DocumentDraft{
		Nickname: r.Nickname,
		Fields:   r.DocumentFields,
		Photo:    r.Photo,
	}
}
