package apperr

var (
	ErrConsultantNotFound   = NotFound("咨询师不存在")
	ErrUserNotFound         = NotFound("用户不存在")
	ErrAppointmentNotFound  = NotFound("预约不存在")
	ErrWishNotFound         = NotFound("心语不存在")
	ErrQuotedWishNotFound   = NotFound("被引用的心语不存在")
	ErrResourceNotFound     = NotFound("资源不存在")
	ErrApplicationNotFound  = NotFound("申请不存在")
	ErrSlotTaken            = Conflict("该时间段已被占用，请选择其他时间")
	ErrAppointmentStarted   = Conflict("预约已开始或已结束")
	ErrNotPending           = Conflict("只有待确认的预约可以确认")
	ErrPhoneTaken           = Conflict("手机号已注册")
	ErrApplicationPending   = Conflict("已有申请正在审核中")
	ErrApplicationHandled   = Conflict("该申请已被处理")
	ErrAlreadyReviewed      = Conflict("该预约已评价")
	ErrInvalidCredentials   = Unauthorized("账号或密码错误")
	ErrInvalidRefreshToken  = Unauthorized("refresh token 无效或已过期")
	ErrNotWishAuthor        = Forbidden("无权删除他人的心语")
	ErrUnsupportedImageType = InvalidArg("不支持的图片类型")
)
