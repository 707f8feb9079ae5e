package escrow

import (
	"errors"
	"fmt"
)

// Error is a named failure of an escrow operation. A call that returns an
// *Error has no effect on persisted state.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return e.Kind + ": " + e.Message
}

func newError(kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrAlreadyInitialized    = newError("AlreadyInitialized", "既に初期化されています")
	ErrNotParticipant        = newError("NotParticipant", "このセッションの参加者ではありません")
	ErrAlreadyDeposited      = newError("AlreadyDeposited", "既にデポジット済みです")
	ErrDeadlineNotReached    = newError("DeadlineNotReached", "開催日時がまだ来ていません")
	ErrDeadlineReached       = newError("DeadlineReached", "開催日時を過ぎています")
	ErrAlreadyFinalized      = newError("AlreadyFinalized", "このセッションは確定済みです")
	ErrNotEnoughParticipants = newError("NotEnoughParticipants", "参加者は3人以上必要です")
	ErrTooManyParticipants   = newError("TooManyParticipants", "参加者は5人までです")
	ErrTransferFailed        = newError("TransferFailed", "送金に失敗しました。残高を確認してください")
	ErrAlreadyVoted          = newError("AlreadyVoted", "このセッションでは既に投票しています")
	ErrInvalidAbsent         = newError("InvalidAbsent", "指定したユーザーは参加者ではありません")
	ErrNotAllDeposited       = newError("NotAllDeposited", "まだ全員のデポジットが揃っていません")
	ErrVotingNotOpen         = newError("VotingNotOpen", "投票期間はまだ始まっていません")
	ErrVotingClosed          = newError("VotingClosed", "投票期間は終了しています")
	ErrSessionNotActive      = newError("SessionNotActive", "デポジットが揃っていないため投票できません")
	ErrCannotVoteSelf        = newError("CannotVoteSelf", "自分自身には投票できません")

	ErrSessionNotFound      = newError("SessionNotFound", "セッションが見つかりません")
	ErrDuplicateParticipant = newError("DuplicateParticipant", "同じ参加者が重複しています")
	ErrInvalidParticipant   = newError("InvalidParticipant", "参加者の指定が不正です")
	ErrInvalidAmount        = newError("InvalidAmount", "金額が不正です")
	ErrInvalidVotingPeriod  = newError("InvalidVotingPeriod", "投票期間が不正です")
	ErrReentrantCall        = newError("ReentrantCall", "処理中のセッションには再入できません")
)

// transferFailed wraps a ledger failure so that errors.Is(err, ErrTransferFailed)
// holds regardless of the cause.
func transferFailed(cause error) error {
	return fmt.Errorf("%w: %v", ErrTransferFailed, cause)
}

// KindOf returns the Kind of the escrow error in err's chain, or "" if none.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns text suitable for showing to an end user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "内部エラーが発生しました"
}
