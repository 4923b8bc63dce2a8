// Package locale holds the user- and operator-facing text catalog.
package locale

import (
	"strconv"
	"strings"
)

// Supported language tags.
const (
	English = "en"
	Russian = "ru"
)

// Languages lists the supported tags in menu order.
var Languages = []string{English, Russian}

// labels are the human-readable names offered in the language menu.
var labels = map[string]string{
	English: "English",
	Russian: "Русский",
}

var catalog = map[string]map[string]string{
	English: {
		"welcome":         "👋 Welcome to our Business Bot!\n\nWe help businesses grow with professional services.\n\nPlease select your language:",
		"ask_name":        "Please enter your full name:",
		"ask_phone":       "Please share your phone number:",
		"ask_service":     "Which service are you interested in?",
		"ask_description": "Please provide a brief description of your task or project:",
		"thank_you":       "✅ Thank you! Your request has been submitted.\n\nOur manager will contact you shortly.",
		"error":           "❌ An error occurred. Please try again.",
		"invalid_input":   "⚠️ Invalid input. Please try again.",
		"cancelled":       "❌ Request cancelled. Send !start to begin again.",
		"new_lead_title":  "🔔 NEW LEAD",
		"lead_status":     "Status",
		"lead_name":       "Name",
		"lead_phone":      "Phone",
		"lead_service":    "Service",
		"lead_desc":       "Description",
		"lead_user":       "User",
		"lead_created":    "Created",
		"lead_contacted":  "Contacted",
		"stats_title":     "📊 CRM Statistics",
		"total_leads":     "Total leads",
		"today":           "Today",
		"this_week":       "This week",
		"by_status":       "By status",
		"no_leads":        "No leads yet.",
		"lead_marked":     "Lead marked as contacted",
		"lead_archived":   "Lead archived",
		"lead_not_found":  "Lead not found",
		"reminder_1h":     "⏰ REMINDER: Lead not contacted for 1 hour!",
		"reminder_24h":    "⚠️ URGENT: Lead not contacted for 24 hours!",
		"yes":             "yes",
		"no":              "no",
	},
	Russian: {
		"welcome":         "👋 Добро пожаловать в наш Бизнес-Бот!\n\nМы помогаем бизнесу расти с помощью профессиональных услуг.\n\nПожалуйста, выберите язык:",
		"ask_name":        "Пожалуйста, введите ваше полное имя:",
		"ask_phone":       "Пожалуйста, укажите ваш номер телефона:",
		"ask_service":     "Какая услуга вас интересует?",
		"ask_description": "Пожалуйста, кратко опишите вашу задачу или проект:",
		"thank_you":       "✅ Спасибо! Ваша заявка принята.\n\nНаш менеджер свяжется с вами в ближайшее время.",
		"error":           "❌ Произошла ошибка. Пожалуйста, попробуйте снова.",
		"invalid_input":   "⚠️ Некорректный ввод. Пожалуйста, попробуйте снова.",
		"cancelled":       "❌ Заявка отменена. Отправьте !start, чтобы начать заново.",
		"new_lead_title":  "🔔 НОВАЯ ЗАЯВКА",
		"lead_status":     "Статус",
		"lead_name":       "Имя",
		"lead_phone":      "Телефон",
		"lead_service":    "Услуга",
		"lead_desc":       "Описание",
		"lead_user":       "Пользователь",
		"lead_created":    "Создана",
		"lead_contacted":  "Связались",
		"stats_title":     "📊 Статистика CRM",
		"total_leads":     "Всего заявок",
		"today":           "Сегодня",
		"this_week":       "За неделю",
		"by_status":       "По статусу",
		"no_leads":        "Заявок пока нет.",
		"lead_marked":     "Заявка отмечена как обработанная",
		"lead_archived":   "Заявка архивирована",
		"lead_not_found":  "Заявка не найдена",
		"reminder_1h":     "⏰ НАПОМИНАНИЕ: С заявкой не связались уже час!",
		"reminder_24h":    "⚠️ СРОЧНО: С заявкой не связались уже 24 часа!",
		"yes":             "да",
		"no":              "нет",
	},
}

var services = map[string][]string{
	English: {"Web Development", "Mobile App", "SEO & Marketing", "Design", "Consulting", "Other"},
	Russian: {"Веб-разработка", "Мобильное приложение", "SEO и маркетинг", "Дизайн", "Консультация", "Другое"},
}

// Text returns the message for key in lang, falling back to English and
// then to the key itself.
func Text(lang, key string) string {
	if msgs, ok := catalog[lang]; ok {
		if s, ok := msgs[key]; ok {
			return s
		}
	}
	if s, ok := catalog[English][key]; ok {
		return s
	}
	return key
}

// Services returns a copy of the default service catalog for lang,
// falling back to English.
func Services(lang string) []string {
	list, ok := services[lang]
	if !ok {
		list = services[English]
	}
	return append([]string(nil), list...)
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// Label returns the menu label for lang.
func Label(lang string) string {
	if l, ok := labels[lang]; ok {
		return l
	}
	return lang
}

// LanguageOptions returns the language menu labels in order.
func LanguageOptions() []string {
	opts := make([]string, len(Languages))
	for i, tag := range Languages {
		opts[i] = labels[tag]
	}
	return opts
}

// Match recognises a language choice given as a tag, a label or a 1-based
// menu index.
func Match(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for i, tag := range Languages {
		if t == tag || t == strings.ToLower(labels[tag]) || t == strconv.Itoa(i+1) {
			return tag, true
		}
	}
	return "", false
}
