package api

import (
	"encoding/json"
	"time"

	"redistrict/internal/boundary"
	"redistrict/internal/session"
)

// 文档注释：对外返回结构
// 背景：地图层直接消费 collection（带逐要素 style 的 FeatureCollection），view 用于居中。
// 约束：字段稳定；新增字段需评估前端依赖。
type boundariesResponse struct {
	Region     string          `json:"region"`
	RegionName string          `json:"region_name"`
	View       boundary.View   `json:"view"`
	Count      int             `json:"count"`
	Collection json.RawMessage `json:"collection"`
}

type locateResponse struct {
	Name     string  `json:"name"`
	Region   *string `json:"region"`
	SalesRep *string `json:"sales_rep"`
	Product  *string `json:"product"`
}

type sessionResponse struct {
	session.Status
	PendingCount int             `json:"pending_count"`
	Pending      json.RawMessage `json:"pending"`
}

type selectRequest struct {
	Region         string `json:"region"`
	Subregion      string `json:"subregion"`
	ConfirmDiscard bool   `json:"confirm_discard"`
}

type drawResponse struct {
	Added   bool   `json:"added"`
	Color   string `json:"color,omitempty"`
	Pending int    `json:"pending"`
}

type saveRequest struct {
	Name string `json:"name"`
}

type saveResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Boundaries int    `json:"boundaries"`
	Proposed   int    `json:"proposed"`
}

type snapshotItem struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	SavedAt *time.Time `json:"saved_at"`
}

type snapshotResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	View       boundary.View   `json:"view"`
	Count      int             `json:"count"`
	Edited     int             `json:"edited"`
	Collection json.RawMessage `json:"collection"`
}

type uploadResponse struct {
	File  string `json:"file"`
	Count int    `json:"count"`
	Rows  any    `json:"rows"`
}
