package index

var (
	bPosts   = []byte("posts")    // slug -> post json
	bIdxDate = []byte("idx_date") // invTime + 0x00 + slug -> 1
	bDocs    = []byte("docs")     // slug -> document json
)
