package service

import (
	"context"
	"strconv"
	"strings"

	"starshop/internal/model"
	"starshop/internal/repository"
)

const DefaultPageOne = "✨ Ласкаво просимо, {username}!\n" +
	"Поточний баланс зірок - {balance} ⭐️\n" +
	"Наше керівництво завжди свіже, корисне та потужне!\n\n" +
	"Думайте про це як свій шлях до успіху.\n\n" +
	"➡️Друга сторінка з FAQ 📚\n\n" +
	"⚡️Дуже швидка, зручна а головне - безпечна оплата!\n\n" +
	"Не чекайте, просто почніть трансформуватись зараз! 🚀"

const DefaultFAQ = "📚 FAQ\n\n" +
	"1. Що входить у гайд? — Найактуальніші методики та стратегії.\n" +
	"2. Коли я отримаю доступ? — Відразу після оплати.\n" +
	"3. Як завантажити гайд? — Натисніть «📥 Скачати» у повідомленні після оплати.\n" +
	"4. Чи є гарантії? — Ми постійно оновлюємо гайд і підтримуємо покупців.\n"

// ContentService serves the admin-editable page texts.
type ContentService struct {
	repo *repository.ContentRepository
}

func NewContentService(repo *repository.ContentRepository) *ContentService {
	return &ContentService{repo: repo}
}

func (s *ContentService) PageOne(ctx context.Context) (string, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil || doc.PageOne == nil {
		return DefaultPageOne, err
	}
	return *doc.PageOne, nil
}

func (s *ContentService) FAQ(ctx context.Context) (string, error) {
	doc, err := s.repo.Get(ctx)
	if err != nil || doc.FAQ == nil {
		return DefaultFAQ, err
	}
	return *doc.FAQ, nil
}

// RenderPageOne fills the {username} and {balance} placeholders.
func (s *ContentService) RenderPageOne(ctx context.Context, username string, balance int64) (string, error) {
	tmpl, err := s.PageOne(ctx)
	r := strings.NewReplacer("{username}", username, "{balance}", strconv.FormatInt(balance, 10))
	return r.Replace(tmpl), err
}

func (s *ContentService) UpdatePageOne(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	return s.repo.Update(ctx, func(d *model.ContentDocument) error {
		d.PageOne = &text
		return nil
	})
}

func (s *ContentService) UpdateFAQ(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	return s.repo.Update(ctx, func(d *model.ContentDocument) error {
		d.FAQ = &text
		return nil
	})
}
