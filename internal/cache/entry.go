package cache

// ContentFile 是 HTML 类条目的正文文件名，Save 默认写入该文件。
const ContentFile = "index.html"

// 脚本与二进制条目使用各自的文件名，条目目录下始终只有一个正文文件。
const (
	scriptFile = "index.js"
	binaryFile = "index.bin"
)

// ContentType 是条目正文的粗粒度分类，通过正文文件名持久化，命中时据此还原 Content-Type。
type ContentType int

const (
	ContentBinary ContentType = iota
	ContentHTML
	ContentScript
)

func (t ContentType) String() string {
	switch t {
	case ContentHTML:
		return "html"
	case ContentScript:
		return "script"
	default:
		return "binary"
	}
}

// FileName 返回该分类在条目目录下使用的正文文件名。
func (t ContentType) FileName() string {
	switch t {
	case ContentHTML:
		return ContentFile
	case ContentScript:
		return scriptFile
	default:
		return binaryFile
	}
}

// contentTypes 是查找正文文件时的固定顺序。
var contentTypes = []ContentType{ContentHTML, ContentScript, ContentBinary}

func contentTypeOf(fileName string) (ContentType, bool) {
	for _, t := range contentTypes {
		if t.FileName() == fileName {
			return t, true
		}
	}
	return ContentBinary, false
}

// Entry 表示一次待写入的缓存单元：路径 + 正文 + 内容分类。
type Entry struct {
	Path    string      `json:"path"`
	Content []byte      `json:"-"`
	Type    ContentType `json:"type"`
}
