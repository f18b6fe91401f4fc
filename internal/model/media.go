package model

// MediaAsset is operator-uploaded bot media referenced by share_media
// workflow steps and the location short-circuit.
type MediaAsset struct {
	ID       string    `db:"id" json:"id"`
	BotID    string    `db:"bot_id" json:"botId"`
	Kind     MediaKind `db:"kind" json:"kind"`
	URL      string    `db:"url" json:"url"`
	FileName string    `db:"file_name" json:"fileName"`
	MimeType string    `db:"mime_type" json:"mimeType"`
	Caption  string    `db:"caption" json:"caption"`
	Position int       `db:"position" json:"position"`
}
