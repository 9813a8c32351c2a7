package summarizer

// BulletsField 模型返回 JSON 中承载总结要点的字段
const BulletsField = "summary_bullets"

// Input 总结输入，只能是 FileInput 或 TextInput
type Input interface {
	isInput()
}

// FileInput 本地文件（上传内容的临时副本）
// MIMEType 为空时按扩展名和内容推断，推断失败默认 application/pdf
type FileInput struct {
	Path     string
	MIMEType string
}

// TextInput 直接粘贴的文本
type TextInput struct {
	Text string
}

func (FileInput) isInput() {}
func (TextInput) isInput() {}

// FailureKind 失败分类
type FailureKind string

const (
	FailureValidation FailureKind = "validation" // 输入校验失败，未调用远端
	FailureConfig     FailureKind = "config"     // 缺少凭据等配置问题，未调用远端
	FailureRemote     FailureKind = "remote"     // 网络、鉴权、限流等远端错误
	FailureParse      FailureKind = "parse"      // 返回内容不是 JSON 对象
)

// Result 总结结果，只能是 *Success 或 *Failure
type Result interface {
	isResult()
}

// Success 成功结果，Data 为模型返回的 JSON 对象
type Success struct {
	Data  map[string]any
	Model string
}

// Failure 失败结果
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (*Success) isResult() {}
func (*Failure) isResult() {}

func (f *Failure) Error() string {
	return f.Message
}

// Unwrap 返回导致失败的底层错误（可能为 nil）
func (f *Failure) Unwrap() error {
	return f.Err
}

// Bullets 返回 summary_bullets 的各项；字段不存在或不是列表时 ok 为 false
func (s *Success) Bullets() (bullets []string, ok bool) {
	raw, ok := s.Data[BulletsField].([]any)
	if !ok {
		return nil, false
	}

	bullets = make([]string, 0, len(raw))
	for _, item := range raw {
		if text, isString := item.(string); isString {
			bullets = append(bullets, text)
			continue
		}
		bullets = append(bullets, stringify(item))
	}
	return bullets, true
}
