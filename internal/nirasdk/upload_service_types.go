package nirasdk

// CompressionDeflate marks a part body as zlib compressed.
const CompressionDeflate = "deflate"

// UploadPartParams travels as the JSON "params" field next to the part bytes.
type UploadPartParams struct {
	UUID           string `json:"uuid"`
	ChunkSize      int    `json:"chunksize"`
	FileName       string `json:"filename"`
	PartIndex      int    `json:"partindex"`
	PartByteOffset int64  `json:"partbyteoffset"`
	TotalParts     int    `json:"totalparts"`
	TotalFileSize  int64  `json:"totalfilesize"`
	Compression    string `json:"compression,omitempty"`
}

type UploadDoneParams struct {
	UUID          string `json:"uuid"`
	FileName      string `json:"filename"`
	TotalFileSize int64  `json:"totalfilesize"`
	TotalParts    int    `json:"totalparts"`
	Fingerprint   string `json:"meowhash"`
}
