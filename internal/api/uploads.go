package api

import (
	"net/http"

	"redistrict/internal/upload"
)

const uploadField = "file"

// readUpload：解析 multipart 中的 file 字段
func (h *handlers) readUpload(w http.ResponseWriter, r *http.Request) (string, []upload.Assignment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.d.UploadMaxBytes)
	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	rows, err := upload.Parse(hdr.Filename, f)
	return hdr.Filename, rows, err
}

func (h *handlers) previewUpload(w http.ResponseWriter, r *http.Request) {
	name, rows, err := h.readUpload(w, r)
	if err != nil {
		h.uploadErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{File: name, Count: len(rows), Rows: rows})
}

// attachAssignments：上传并挂到会话，之后的视图与保存都带上负责人/产品属性
func (h *handlers) attachAssignments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	name, rows, err := h.readUpload(w, r)
	if err != nil {
		h.uploadErr(w, r, err)
		return
	}
	s.SetAssignments(rows)
	writeJSON(w, http.StatusOK, uploadResponse{File: name, Count: len(rows), Rows: rows})
}

func (h *handlers) uploadErr(w http.ResponseWriter, r *http.Request, err error) {
	if status := statusOf(err); status != http.StatusInternalServerError {
		writeErr(w, r, err)
		return
	}
	// 缺少 file 字段或表单格式错误
	writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
}
