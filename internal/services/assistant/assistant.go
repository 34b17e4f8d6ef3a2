// Package services содержит AI-консультанта по аквариумистике.
//
// Каждый запрос к консультанту проходит через резолвер лимитов: слот
// суточного лимита занимается до обращения к модели, ответ с отказом
// возвращается без обращения вовсе.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/marlinkeeper/aquatrack/internal/models"
	"github.com/marlinkeeper/aquatrack/internal/services/entitlement"
)

// ErrNotOwner возвращается при вопросе о чужом аквариуме.
var ErrNotOwner = errors.New("tank belongs to another user")

const systemPrompt = "You are an aquarium keeping expert. Answer briefly and practically, " +
	"with concrete numbers where possible. If the question is dangerous for livestock, say so first."

// ChatCompleter описывает клиент LLM. Сигнатура совпадает с методом
// клиента openai.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Entitlements занимает слот суточного лимита и записывает токены.
type Entitlements interface {
	Consume(ctx context.Context, userUID string, feature models.Feature) (*entitlement.Result, error)
	RecordTokens(ctx context.Context, userUID string, feature models.Feature, inputTokens, outputTokens int)
}

// TankReader читает аквариум для контекста запроса.
type TankReader interface {
	ReadTank(ctx context.Context, id int) (*models.Tank, error)
}

// ParameterReader читает последнее измерение для контекста запроса.
type ParameterReader interface {
	GetLatestParameters(ctx context.Context, tankID int) (*models.WaterParameters, error)
}

// Reply — ответ консультанта.
type Reply struct {
	Answer string `json:"answer"`
}

// AssistantService реализует AI-консультанта.
type AssistantService struct {
	client ChatCompleter
	ents   Entitlements
	tanks  TankReader
	params ParameterReader
	model  string
	log    *slog.Logger
}

// NewAssistantService создает новый экземпляр AssistantService.
func NewAssistantService(client ChatCompleter, ents Entitlements, tanks TankReader, params ParameterReader, model string, log *slog.Logger) *AssistantService {
	return &AssistantService{
		client: client,
		ents:   ents,
		tanks:  tanks,
		params: params,
		model:  model,
		log:    log,
	}
}

// Chat отвечает на вопрос пользователя. tankID опционален: при ненулевом
// значении в запрос добавляется контекст аквариума и последнего измерения.
func (s *AssistantService) Chat(ctx context.Context, userUID, role string, tankID int, question string) (*Reply, *entitlement.Result, error) {
	check, err := s.ents.Consume(ctx, userUID, models.FeatureAIMessages)
	if err != nil {
		return nil, nil, err
	}
	if !check.Allowed {
		return nil, check, nil
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if tankID != 0 {
		tankContext, err := s.tankContext(ctx, userUID, role, tankID)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: tankContext,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: question,
	})

	reply, err := s.complete(ctx, userUID, models.FeatureAIMessages, messages)
	if err != nil {
		return nil, nil, err
	}
	return reply, check, nil
}

// Diagnose анализирует фотографию аквариума или его обитателя.
func (s *AssistantService) Diagnose(ctx context.Context, userUID, role string, tankID int, imageURL, description string) (*Reply, *entitlement.Result, error) {
	check, err := s.ents.Consume(ctx, userUID, models.FeaturePhotoDiagnosis)
	if err != nil {
		return nil, nil, err
	}
	if !check.Allowed {
		return nil, check, nil
	}

	prompt := "Diagnose the problem on this aquarium photo. Name the likely disease or issue and the treatment steps."
	if description != "" {
		prompt += " Owner's description: " + description
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if tankID != 0 {
		tankContext, err := s.tankContext(ctx, userUID, role, tankID)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: tankContext,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
		},
	})

	reply, err := s.complete(ctx, userUID, models.FeaturePhotoDiagnosis, messages)
	if err != nil {
		return nil, nil, err
	}
	return reply, check, nil
}

// Equipment подбирает оборудование под аквариум пользователя.
func (s *AssistantService) Equipment(ctx context.Context, userUID, role string, tankID int) (*Reply, *entitlement.Result, error) {
	check, err := s.ents.Consume(ctx, userUID, models.FeatureEquipmentRecs)
	if err != nil {
		return nil, nil, err
	}
	if !check.Allowed {
		return nil, check, nil
	}

	tankContext, err := s.tankContext(ctx, userUID, role, tankID)
	if err != nil {
		return nil, nil, err
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleSystem, Content: tankContext},
		{Role: openai.ChatMessageRoleUser, Content: "Recommend a filter, heater and lighting for this tank. " +
			"Give concrete capacity and wattage numbers, not brand advertising."},
	}

	reply, err := s.complete(ctx, userUID, models.FeatureEquipmentRecs, messages)
	if err != nil {
		return nil, nil, err
	}
	return reply, check, nil
}

func (s *AssistantService) complete(ctx context.Context, userUID string, feature models.Feature, messages []openai.ChatCompletionMessage) (*Reply, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("assistant: empty response")
	}

	s.ents.RecordTokens(ctx, userUID, feature, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return &Reply{Answer: resp.Choices[0].Message.Content}, nil
}

// tankContext собирает описание аквариума и последнего измерения для
// системного сообщения модели.
func (s *AssistantService) tankContext(ctx context.Context, userUID, role string, tankID int) (string, error) {
	tank, err := s.tanks.ReadTank(ctx, tankID)
	if err != nil {
		return "", err
	}
	if tank.UserUID != userUID && role != "admin" {
		return "", ErrNotOwner
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User's tank: %q, %d liters, %s.", tank.Name, tank.VolumeLiters, tank.WaterType)
	if latest, err := s.params.GetLatestParameters(ctx, tankID); err == nil {
		fmt.Fprintf(&b, " Latest water parameters: pH %.1f, %.1f C, ammonia %.2f, nitrite %.2f, nitrate %.1f mg/l.",
			latest.PH, latest.Temperature, latest.Ammonia, latest.Nitrite, latest.Nitrate)
	}
	return b.String(), nil
}
