package escrow

import (
	"errors"
	"fmt"
)

// EscrowError 是 escrow 程序自定义错误。
// 枚举顺序即对外错误码（映射为 ProgramError 的 Custom(code)），只允许在末尾追加。
type EscrowError uint32

const (
	ErrInvalidInstruction     EscrowError = iota // 0: 指令数据非法或 tag 未知
	ErrNotRentExempt                             // 1: escrow 记录账户未达到免租余额
	ErrExpectedAmountMismatch                    // 2: taker 观测到的托管余额与其期望不一致
	ErrAmountOverflow                            // 3: 金额运算溢出
	ErrEscrowTimeOverflow                        // 4: 预留，时间锁字段未启用
	ErrEscrowTimeUnlock                          // 5: 预留，时间锁字段未启用
)

var escrowErrorNames = []string{
	"Invalid Instruction",
	"Not Rent Exempt",
	"Expected Amount Mismatch",
	"Amount Overflow",
	"Escrow Time Overflow",
	"Escrow Time Lock",
}

func (e EscrowError) Error() string {
	if int(e) < len(escrowErrorNames) {
		return escrowErrorNames[e]
	}
	return fmt.Sprintf("Unknown Escrow Error (%d)", uint32(e))
}

// Code 返回稳定的自定义错误码
func (e EscrowError) Code() uint32 {
	return uint32(e)
}

// ProgramErrorKind 运行时内置错误类别，与链上 ProgramError 的语义保持一致
type ProgramErrorKind uint8

const (
	KindCustom ProgramErrorKind = iota
	KindInvalidArgument
	KindInvalidInstructionData
	KindInvalidAccountData
	KindInsufficientFunds
	KindIncorrectProgramId
	KindMissingRequiredSignature
	KindAccountAlreadyInitialized
	KindUninitializedAccount
	KindNotEnoughAccountKeys
	KindInvalidSeeds
)

var programErrorNames = []string{
	"custom program error",
	"invalid program argument",
	"invalid instruction data",
	"invalid account data for instruction",
	"insufficient funds for instruction",
	"incorrect program id for instruction",
	"missing required signature for instruction",
	"instruction requires an uninitialized account",
	"instruction requires an initialized account",
	"insufficient account keys for instruction",
	"provided seeds do not result in a valid address",
}

func (k ProgramErrorKind) String() string {
	if int(k) < len(programErrorNames) {
		return programErrorNames[k]
	}
	return "unknown program error"
}

// ProgramError 是一次指令执行最终暴露给调用方的错误。
// 值类型，可直接用 == / errors.Is 比较。
type ProgramError struct {
	Kind ProgramErrorKind
	Code uint32 // 仅 Kind == KindCustom 时有效
}

func (e ProgramError) Error() string {
	if e.Kind == KindCustom {
		return fmt.Sprintf("custom program error: %#x", e.Code)
	}
	return e.Kind.String()
}

// Custom 构造自定义错误码
func Custom(code uint32) ProgramError {
	return ProgramError{Kind: KindCustom, Code: code}
}

var (
	ErrInvalidArgument           = ProgramError{Kind: KindInvalidArgument}
	ErrInvalidInstructionData    = ProgramError{Kind: KindInvalidInstructionData}
	ErrInvalidAccountData        = ProgramError{Kind: KindInvalidAccountData}
	ErrInsufficientFunds         = ProgramError{Kind: KindInsufficientFunds}
	ErrIncorrectProgramId        = ProgramError{Kind: KindIncorrectProgramId}
	ErrMissingRequiredSignature  = ProgramError{Kind: KindMissingRequiredSignature}
	ErrAccountAlreadyInitialized = ProgramError{Kind: KindAccountAlreadyInitialized}
	ErrUninitializedAccount      = ProgramError{Kind: KindUninitializedAccount}
	ErrNotEnoughAccountKeys      = ProgramError{Kind: KindNotEnoughAccountKeys}
	ErrInvalidSeeds              = ProgramError{Kind: KindInvalidSeeds}
)

// ToProgramError 把任意错误归一为 ProgramError：
//   - EscrowError → Custom(code)
//   - ProgramError（可被包装）→ 原值
//   - 其他错误 → ok=false，由宿主决定如何上报
func ToProgramError(err error) (ProgramError, bool) {
	if err == nil {
		return ProgramError{}, false
	}
	var ee EscrowError
	if errors.As(err, &ee) {
		return Custom(ee.Code()), true
	}
	var pe ProgramError
	if errors.As(err, &pe) {
		return pe, true
	}
	return ProgramError{}, false
}
