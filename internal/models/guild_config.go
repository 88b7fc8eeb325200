package models

// GuildConfig stores the role allowed to create and edit documents in a guild.
type GuildConfig struct {
	GuildID        string `json:"guild_id" bson:"guild_id" gorm:"column:guild_id;primaryKey"`
	AuthorizedRole string `json:"authorized_role" bson:"authorized_role" gorm:"column:authorized_role"`
}

// TableName pins the gorm table name
func (GuildConfig) TableName() string {
	return "guild_config"
}
