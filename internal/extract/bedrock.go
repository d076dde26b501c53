package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/yuchen-w/fangnote/internal/config"
	"github.com/yuchen-w/fangnote/internal/metrics"
	"github.com/yuchen-w/fangnote/internal/models"
)

// BedrockExtractor implements Extractor via the Bedrock Converse API.
// Converse takes text and image blocks; audio clips are not accepted, so
// audio submissions must go through one of the langchaingo providers.
type BedrockExtractor struct {
	client  *bedrockruntime.Client
	modelID string
	metrics *metrics.Collector
}

var _ Extractor = (*BedrockExtractor)(nil)

// NewBedrockExtractor creates an extractor using the ambient AWS credentials.
func NewBedrockExtractor(ctx context.Context, cfg config.Config, collector *metrics.Collector) (*BedrockExtractor, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BedrockExtractor{
		client:  bedrockruntime.NewFromConfig(awscfg),
		modelID: cfg.BedrockModel,
		metrics: collector,
	}, nil
}

// Extract sends the prompt and optional image through Converse.
func (e *BedrockExtractor) Extract(ctx context.Context, in Input) ([]models.Listing, error) {
	if in.Audio != nil {
		return nil, fmt.Errorf("bedrock provider does not accept audio input")
	}

	content := []types.ContentBlock{
		&types.ContentBlockMemberText{Value: buildPrompt(in.Text)},
	}
	if in.Image != nil {
		format, err := imageFormat(in.Image.MIME)
		if err != nil {
			return nil, err
		}
		content = append(content, &types.ContentBlockMemberImage{
			Value: types.ImageBlock{
				Format: format,
				Source: &types.ImageSourceMemberBytes{Value: in.Image.Data},
			},
		})
	}

	start := time.Now()
	out, err := e.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(e.modelID),
		Messages: []types.Message{
			{Role: types.ConversationRoleUser, Content: content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	if e.metrics != nil {
		var inTok, outTok int64
		if out.Usage != nil {
			if out.Usage.InputTokens != nil {
				inTok = int64(*out.Usage.InputTokens)
			}
			if out.Usage.OutputTokens != nil {
				outTok = int64(*out.Usage.OutputTokens)
			}
		}
		e.metrics.RecordExtraction(time.Since(start), inTok, outTok)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return nil, ErrNoResponse
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}

	return parseListings(text.String())
}

func imageFormat(mime string) (types.ImageFormat, error) {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return types.ImageFormatJpeg, nil
	case "image/png":
		return types.ImageFormatPng, nil
	case "image/gif":
		return types.ImageFormatGif, nil
	case "image/webp":
		return types.ImageFormatWebp, nil
	default:
		return "", fmt.Errorf("unsupported image type %q", mime)
	}
}
