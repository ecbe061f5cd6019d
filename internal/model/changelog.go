package model

import "time"

// ChangeAction は変更履歴の操作種別
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// 変更履歴の entity 名
const (
	EntityProject = "project"
	EntityPost    = "post"
)

// RecentChangesLimit は管理画面に表示する直近の変更件数
const RecentChangesLimit = 5

// ChangeLogEntry は追記専用の変更履歴。Title は記録時点のスナップショット。
type ChangeLogEntry struct {
	Action    ChangeAction `json:"action"`
	Entity    string       `json:"entity"`
	Title     string       `json:"title"`
	Timestamp time.Time    `json:"timestamp"`
}
