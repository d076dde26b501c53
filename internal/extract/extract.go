// Package extract invokes a generative AI service to turn free-form listing
// descriptions (text, one image, one audio clip) into structured listings.
package extract

import (
	"context"
	"errors"

	"github.com/yuchen-w/fangnote/internal/models"
)

// Media is one inline attachment (a still image or a recorded clip).
type Media struct {
	MIME string
	Data []byte
}

// Input is one extraction request. At least one of the three fields must be
// present; the caller enforces this before invoking an Extractor.
type Input struct {
	Text  string
	Image *Media
	Audio *Media
}

// HasContent reports whether the input carries anything to extract from.
func (in Input) HasContent() bool {
	return in.Text != "" || in.Image != nil || in.Audio != nil
}

// ErrNoResponse is returned when the service replies with an empty body.
var ErrNoResponse = errors.New("no data returned from AI")

// Extractor converts raw listing input into zero or more structured listings.
// The call may take arbitrarily long and has no cancellation beyond ctx; all
// failure modes (credentials, network, malformed response) surface as a
// single error with a human-readable message.
type Extractor interface {
	Extract(ctx context.Context, in Input) ([]models.Listing, error)
}

// instructions is the fixed preamble sent with every request. Kept in Chinese
// to match the expected input language of the extracted fields.
const instructions = `你是一个专业的房地产数据助手。
请分析提供的输入（文本、图片或音频），提取房源关键信息，并以 JSON 格式输出。

规则：
1. 输入可能包含 **多个** 房源信息，请务必将它们全部分开提取。
2. 如果缺少某个字段，请使用合理的默认值（例如空字符串或0）。
3. rentOrSale 字段必须严格对应 "Rent" (出租/租房) 或 "Sale" (出售/卖房)。
4. 如果是中文输入，提取的内容（如朝向、户型）请保持中文。
5. 如果提供了音频，请先在内部转录音频内容，然后提取数据。

输出必须是一个 JSON 对象，形如：
{"listings": [{"communityName": "...", "price": 0, "rentOrSale": "Rent",
"layout": "...", "area": 0, "floor": "...", "orientation": "...",
"contactName": "...", "contactPhone": "...", "additionalNotes": "..."}]}
其中 communityName 和 rentOrSale 为必填字段。`

// buildPrompt combines the instructions with optional user text.
func buildPrompt(text string) string {
	if text == "" {
		return instructions
	}
	return instructions + "\n\n用户描述: " + text
}
