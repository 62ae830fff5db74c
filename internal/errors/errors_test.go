package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	err = New(ErrOfferNotFound, "attack_id=7")
	suite.Equal(ErrOfferNotFound, err.Code)
	suite.Equal("攻击不存在", err.Message)
	suite.Equal("attack_id=7", err.Details)

	// 测试多个详情
	err = New(ErrDatabaseConnect, "连接失败", "主机: localhost", "端口: 3306")
	suite.Equal("连接失败; 主机: localhost; 端口: 3306", err.Details)
}

// 测试格式化错误创建
func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrReviewCooldown, "剩余 %d ms", 30000)
	suite.Equal(ErrReviewCooldown, err.Code)
	suite.Equal("剩余 30000 ms", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.NotNil(wrappedErr)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	suite.Nil(Wrap(nil, ErrUnknown))

	// 包装已有的AppError，保留原始错误码
	appErr := New(ErrNoShieldTokens, "shield=0")
	wrappedAppErr := Wrap(appErr, ErrDatabaseUpdate, "额外信息")
	suite.Equal(ErrNoShieldTokens, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

// 测试格式化错误包装
func (suite *ErrorsTestSuite) TestWrapf() {
	originalErr := errors.New("连接超时")
	wrappedErr := Wrapf(originalErr, ErrDatabaseConnect, "数据库 %s 连接失败", "MySQL")
	suite.Equal(ErrDatabaseConnect, wrappedErr.Code)
	suite.Equal("数据库 MySQL 连接失败", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)
}

// 测试错误码判断（包括fmt包装后的错误）
func (suite *ErrorsTestSuite) TestIs() {
	err := New(ErrAttackAlreadyPending)
	suite.True(Is(err, ErrAttackAlreadyPending))
	suite.False(Is(err, ErrOfferNotFound))
	suite.False(Is(nil, ErrAttackAlreadyPending))

	wrapped := fmt.Errorf("initiate: %w", err)
	suite.True(Is(wrapped, ErrAttackAlreadyPending))

	suite.False(Is(errors.New("标准错误"), ErrUnknown))
}

// 测试获取错误码
func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrOfferExpired, GetCode(New(ErrOfferExpired)))
	suite.Equal(ErrUnknown, GetCode(errors.New("标准错误")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

// 测试令牌不足类错误
func (suite *ErrorsTestSuite) TestIsInsufficientTokens() {
	for _, code := range []ErrorCode{ErrInsufficientTokens, ErrNoAttackTokens, ErrNoShieldTokens, ErrNoReviewTokens} {
		suite.True(IsInsufficientTokens(New(code)), "错误码 %d", code)
	}
	suite.False(IsInsufficientTokens(New(ErrAttackAlreadyPending)))
	suite.False(IsInsufficientTokens(nil))
}

// 测试错误消息
func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{
		Code:    ErrNotFound,
		Message: "资源未找到",
	}
	suite.Equal("[1002] 资源未找到", err.Error())

	err.Details = "project=p1"
	suite.Equal("[1002] 资源未找到: project=p1", err.Error())
}

// 测试Unwrap
func (suite *ErrorsTestSuite) TestUnwrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrUnknown)
	suite.Equal(originalErr, wrappedErr.Unwrap())
	suite.Nil(New(ErrUnknown).Unwrap())
}

// 测试WithCause
func (suite *ErrorsTestSuite) TestWithCause() {
	cause := errors.New("SQL语法错误")
	err := New(ErrDatabaseQuery).WithCause(cause)
	suite.Equal(cause, err.Cause)
	suite.Equal("SQL语法错误", err.Details)

	err2 := New(ErrDatabaseQuery, "查询失败").WithCause(cause)
	suite.Equal("查询失败", err2.Details)
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrInvalidParam, http.StatusBadRequest},
		{ErrSelfAttack, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrOfferNotFound, http.StatusNotFound},
		{ErrAttackAlreadyPending, http.StatusConflict},
		{ErrOfferNotPending, http.StatusConflict},
		{ErrOfferExpired, http.StatusGone},
		{ErrReviewCooldown, http.StatusTooManyRequests},
		{ErrNoAttackTokens, http.StatusPaymentRequired},
		{ErrNoShieldTokens, http.StatusPaymentRequired},
		{ErrDatabaseConnect, http.StatusServiceUnavailable},
		{ErrUnknown, http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		suite.Equal(tc.expected, New(tc.code).HTTPStatus(), "错误码 %d", tc.code)
	}
}

// 测试可重试与严重错误判断
func (suite *ErrorsTestSuite) TestRetryableAndCritical() {
	suite.True(IsRetryable(New(ErrTransaction)))
	suite.False(IsRetryable(New(ErrOfferExpired)))
	suite.False(IsRetryable(nil))

	suite.True(IsCritical(New(ErrDatabaseConnect)))
	suite.False(IsCritical(New(ErrNoAttackTokens)))
	suite.False(IsCritical(nil))
}

// 测试调用栈捕获
func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())
}

// 测试错误响应
func (suite *ErrorsTestSuite) TestErrorResponse() {
	err := New(ErrNotFound, "用户不存在")
	response := NewErrorResponse(err, "req-123")

	suite.False(response.Success)
	suite.Equal(err, response.Error)
	suite.Equal("req-123", response.RequestID)
	suite.Greater(response.Timestamp, int64(0))
}

// 测试未知错误码
func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
