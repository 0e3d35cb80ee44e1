package cards

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Card
		wantErr bool
	}{
		{name: "ace of spades", input: "As", want: Card{Rank: Ace, Suit: Spades}},
		{name: "ten of diamonds", input: "Td", want: Card{Rank: Ten, Suit: Diamonds}},
		{name: "two of clubs", input: "2c", want: Card{Rank: Two, Suit: Clubs}},
		{name: "nine of hearts", input: "9h", want: Card{Rank: Nine, Suit: Hearts}},
		{name: "king of hearts", input: "Kh", want: Card{Rank: King, Suit: Hearts}},
		{name: "unknown rank", input: "Xs", wantErr: true},
		{name: "unknown suit", input: "Ax", wantErr: true},
		{name: "lowercase rank", input: "as", wantErr: true},
		{name: "too short", input: "A", wantErr: true},
		{name: "too long", input: "Asd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodeRoundTrip(t *testing.T) {
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			card := NewCard(rank, suit)
			parsed, err := Parse(card.Code())
			require.NoError(t, err, "code %q", card.Code())
			assert.Equal(t, card, parsed)
		}
	}
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "A♠", NewCard(Ace, Spades).String())
	assert.Equal(t, "T♥", NewCard(Ten, Hearts).String())
	assert.Equal(t, "2♣", NewCard(Two, Clubs).String())
	assert.Equal(t, "Q♦", NewCard(Queen, Diamonds).String())
}

func TestCardJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		hand := []Card{MustParse("As"), MustParse("Td"), MustParse("2c")}

		data, err := json.Marshal(hand)
		require.NoError(t, err)
		assert.JSONEq(t, `["As","Td","2c"]`, string(data))

		var decoded []Card
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, hand, decoded)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []string{`"Asd"`, `"A"`, `"xx"`, `42`, `""`} {
			var c Card
			assert.Error(t, json.Unmarshal([]byte(raw), &c), "input %s", raw)
		}
	})
}

func TestValid(t *testing.T) {
	assert.True(t, NewCard(Ace, Spades).Valid())
	assert.True(t, NewCard(Two, Clubs).Valid())
	assert.False(t, Card{}.Valid())
	assert.False(t, Card{Rank: Rank(15), Suit: Spades}.Valid())
	assert.False(t, Card{Rank: Ace, Suit: Suit(4)}.Valid())
}

func TestCodes(t *testing.T) {
	hand := []Card{MustParse("Kh"), MustParse("Qs")}
	assert.Equal(t, []string{"Kh", "Qs"}, Codes(hand))
	assert.Empty(t, Codes(nil))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("zz") })
}
