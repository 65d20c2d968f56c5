package uploader

// DefaultChunkSize is the size of every part but the last.
const DefaultChunkSize int64 = 20 << 20

// Chunk is a byte range of a file, recomputed from the file size on demand.
type Chunk struct {
	Index  int
	Offset int64
	Length int64
}

// TotalParts is floor(size/chunkSize)+1. Sizes that are an exact multiple of
// chunkSize get a trailing empty part; the server expects that count.
func TotalParts(size, chunkSize int64) int {
	return int(size/chunkSize) + 1
}

// Partition lists every part of a file of the given size, empty ones included.
func Partition(size, chunkSize int64) []Chunk {
	n := TotalParts(size, chunkSize)
	chunks := make([]Chunk, n)
	for i := range chunks {
		off := int64(i) * chunkSize
		chunks[i] = Chunk{
			Index:  i,
			Offset: off,
			Length: max(0, min(chunkSize, size-off)),
		}
	}
	return chunks
}
