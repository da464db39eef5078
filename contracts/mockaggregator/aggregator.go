/*
Package mockaggregator contains a price feed contract for development
networks. It follows the aggregator interface (decimals, latestRoundData,
getRoundData, version, description) and lets anyone set the answer, so tests
can move the price at will.

Deployment data is an array of two integers: decimals and the initial answer.
*/
package mockaggregator

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

const (
	version     = 0
	description = "MockV3Aggregator"

	maxDecimals = 18

	decimalsKey        = "d"
	latestAnswerKey    = "a"
	latestTimestampKey = "t"
	latestRoundKey     = "r"

	prefixAnswer    = "A"
	prefixTimestamp = "T"
	prefixStartedAt = "S"
)

// RoundData is a single round of the feed.
type RoundData struct {
	RoundID         int
	Answer          int
	StartedAt       int
	UpdatedAt       int
	AnsweredInRound int
}

func _deploy(data any, isUpdate bool) {
	if isUpdate {
		return
	}
	args := data.([]any)
	if len(args) != 2 {
		panic("invalid deployment parameters")
	}
	decimals := args[0].(int)
	if decimals < 0 || decimals > maxDecimals {
		panic("invalid decimals")
	}
	ctx := storage.GetContext()
	storage.Put(ctx, decimalsKey, decimals)
	updateAnswer(ctx, args[1].(int))
}

// Decimals returns the number of decimals answers have.
func Decimals() int {
	return getInt(storage.GetReadOnlyContext(), decimalsKey)
}

// Version returns the version of the aggregator.
func Version() int {
	return version
}

// Description returns the description of the feed.
func Description() string {
	return description
}

// LatestAnswer returns the answer of the latest round.
func LatestAnswer() int {
	return getInt(storage.GetReadOnlyContext(), latestAnswerKey)
}

// LatestTimestamp returns the update time of the latest round.
func LatestTimestamp() int {
	return getInt(storage.GetReadOnlyContext(), latestTimestampKey)
}

// LatestRound returns the latest round ID.
func LatestRound() int {
	return getInt(storage.GetReadOnlyContext(), latestRoundKey)
}

// GetAnswer returns the answer for the given round, 0 for unknown rounds.
func GetAnswer(roundID int) int {
	return getInt(storage.GetReadOnlyContext(), roundKey(prefixAnswer, roundID))
}

// GetTimestamp returns the update time of the given round, 0 for unknown
// rounds.
func GetTimestamp(roundID int) int {
	return getInt(storage.GetReadOnlyContext(), roundKey(prefixTimestamp, roundID))
}

// LatestRoundData returns the data of the latest round.
func LatestRoundData() RoundData {
	ctx := storage.GetReadOnlyContext()
	return getRound(ctx, getInt(ctx, latestRoundKey))
}

// GetRoundData returns the data of the given round.
func GetRoundData(roundID int) RoundData {
	return getRound(storage.GetReadOnlyContext(), roundID)
}

// UpdateAnswer starts a new round with the given answer at the current time.
func UpdateAnswer(answer int) {
	updateAnswer(storage.GetContext(), answer)
}

// UpdateRoundData overwrites the given round and makes it the latest one.
func UpdateRoundData(roundID int, answer int, timestamp int, startedAt int) {
	storeRound(storage.GetContext(), roundID, answer, timestamp, startedAt)
	runtime.Notify("AnswerUpdated", answer, roundID, timestamp)
}

func updateAnswer(ctx storage.Context, answer int) {
	now := runtime.GetTime()
	round := getInt(ctx, latestRoundKey) + 1
	storeRound(ctx, round, answer, now, now)
	runtime.Notify("AnswerUpdated", answer, round, now)
}

func storeRound(ctx storage.Context, round, answer, timestamp, startedAt int) {
	storage.Put(ctx, latestRoundKey, round)
	storage.Put(ctx, latestAnswerKey, answer)
	storage.Put(ctx, latestTimestampKey, timestamp)
	storage.Put(ctx, roundKey(prefixAnswer, round), answer)
	storage.Put(ctx, roundKey(prefixTimestamp, round), timestamp)
	storage.Put(ctx, roundKey(prefixStartedAt, round), startedAt)
}

func getRound(ctx storage.Context, round int) RoundData {
	return RoundData{
		RoundID:         round,
		Answer:          getInt(ctx, roundKey(prefixAnswer, round)),
		StartedAt:       getInt(ctx, roundKey(prefixStartedAt, round)),
		UpdatedAt:       getInt(ctx, roundKey(prefixTimestamp, round)),
		AnsweredInRound: round,
	}
}

func getInt(ctx storage.Context, key string) int {
	val := storage.Get(ctx, key)
	if val == nil {
		return 0
	}
	return val.(int)
}

func roundKey(prefix string, round int) string {
	return prefix + std.Itoa10(round)
}
