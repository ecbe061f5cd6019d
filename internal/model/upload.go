package model

// Upload はギャラリー等にアップロードする画像 1 件
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
