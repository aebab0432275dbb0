package errors

// Kind classifies a failure. The HTTP layer maps each kind to a status code.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"   // missing or blank required input
	KindConflict     Kind = "CONFLICT"     // uniqueness violation
	KindNotFound     Kind = "NOT_FOUND"    // referenced code/product absent
	KindPrecondition Kind = "PRECONDITION" // operation attempted out of order
	KindParse        Kind = "PARSE"        // malformed upload or store payload
	KindInternal     Kind = "INTERNAL"     // store/transport failure
)

// User-facing messages shared by controllers and services.
const (
	MsgInternal         = "服务器内部错误"
	MsgParse            = "数据解析错误"
	MsgCodeRequired     = "请填写明码和暗码"
	MsgCodeExists       = "明码或暗码已存在"
	MsgCodeNotFound     = "未找到对应的溯源码"
	MsgCodeNotImported  = "未找到对应的明码，请先导入溯源码信息"
	MsgProductRequired  = "请填写明码和选择产品"
	MsgProductNotFound  = "未找到对应的产品"
	MsgSKURequired      = "请填写产品SKU"
	MsgSKUExists        = "产品SKU已存在"
	MsgDistributorBlank = "请提供分销商信息"
	MsgLinkFirst        = "该溯源码尚未关联产品，请先录入产品信息"
	MsgInvalidID        = "请提供有效的产品ID"
	MsgFileRequired     = "请选择CSV文件"
	MsgFileRead         = "读取CSV文件错误"
	MsgCSVMalformed     = "CSV文件格式错误"
	MsgCSVEmpty         = "CSV文件没有有效数据"
	MsgValueTooLong     = "输入内容超出长度限制"
)
