package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/artchaos/booking-platform/internal/bookings"
	"github.com/artchaos/booking-platform/internal/schedule"
)

// Reply is one outbound message with an optional one-tap keyboard. A nil
// keyboard leaves whatever keyboard the chat already shows.
type Reply struct {
	Text     string     `json:"text"`
	Keyboard [][]string `json:"keyboard,omitempty"`
}

// Menu button labels. These double as recognized inputs, since tapping a
// reply-keyboard button sends its label back as plain text.
const (
	btnBook          = "📅 Записаться"
	btnMyBookings    = "📋 Мои записи"
	btnBalance       = "🎟 Мой абонемент"
	btnCancelBooking = "❌ Отменить запись"
	btnAbort         = "❌ Отмена"
)

var ruWeekdays = map[time.Weekday]string{
	time.Monday:    "Пн",
	time.Tuesday:   "Вт",
	time.Wednesday: "Ср",
	time.Thursday:  "Чт",
	time.Friday:    "Пт",
	time.Saturday:  "Сб",
	time.Sunday:    "Вс",
}

func menuKeyboard() [][]string {
	return [][]string{
		{btnBook, btnMyBookings},
		{btnBalance, btnCancelBooking},
	}
}

// dateKeyboard renders one bookable date per row, "02.07 (Ср)".
func dateKeyboard(dates []time.Time) [][]string {
	rows := make([][]string, 0, len(dates)+1)
	for _, d := range dates {
		label := fmt.Sprintf("%s (%s)", d.Format(schedule.DateLabelFormat), ruWeekdays[d.Weekday()])
		rows = append(rows, []string{label})
	}
	rows = append(rows, []string{btnAbort})
	return rows
}

// timeKeyboard renders slot labels two per row.
func timeKeyboard(labels []string) [][]string {
	var rows [][]string
	for i := 0; i < len(labels); i += 2 {
		row := []string{labels[i]}
		if i+1 < len(labels) {
			row = append(row, labels[i+1])
		}
		rows = append(rows, row)
	}
	rows = append(rows, []string{btnAbort})
	return rows
}

// durationKeyboard renders the allowed durations on one row.
func durationKeyboard(durations []int) [][]string {
	row := make([]string, 0, len(durations))
	for _, d := range durations {
		row = append(row, durationLabel(d))
	}
	return [][]string{row, {btnAbort}}
}

func durationLabel(hours int) string {
	return fmt.Sprintf("%d %s", hours, pluralRu(hours, "час", "часа", "часов"))
}

// pluralRu picks the Russian plural form for n (1 час, 2 часа, 5 часов).
func pluralRu(n int, one, few, many string) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func visitsLabel(n int) string {
	return fmt.Sprintf("%d %s", n, pluralRu(n, "визит", "визита", "визитов"))
}

func welcomeText(firstName, studioName string) string {
	greeting := "Привет! 👋"
	if firstName != "" {
		greeting = fmt.Sprintf("Привет, %s! 👋", firstName)
	}
	return greeting + "\n\n" +
		fmt.Sprintf("Добро пожаловать в бот творческой мастерской %s! 🎨\n\n", studioName) +
		"Выберите действие на клавиатуре ниже или используйте команды:\n" +
		"/book - записаться\n" +
		"/my - мои записи\n" +
		"/balance - абонемент\n" +
		"/help - справка"
}

func helpText() string {
	return "📋 Справка по использованию бота:\n\n" +
		"/start - начать работу с ботом\n" +
		"/book - записаться в мастерскую\n" +
		"/my - показать ваши записи\n" +
		"/balance - остаток визитов в абонементе\n" +
		"/cancel - прервать текущее действие\n\n" +
		"💡 Первая запись в день списывает один визит с абонемента, повторные записи в тот же день бесплатны."
}

func datePromptText() string {
	return "📅 На какой день вы хотите записаться?\n\nВыберите дату из списка ниже:"
}

func timePromptText(day time.Time) string {
	return fmt.Sprintf("✅ Отлично! Вы выбрали %s\n\n🕐 Теперь выберите время начала:", day.Format("02.01.2006"))
}

func durationPromptText() string {
	return "⏱️ На сколько часов вы хотите записаться?"
}

func abortText() string {
	return "❌ Действие отменено.\n\nЕсли захотите записаться, нажмите «" + btnBook + "»."
}

func unknownText() string {
	return "Я вас не понял. Пожалуйста, выберите действие на клавиатуре ниже 👇"
}

func badDateText() string {
	return "Пожалуйста, выберите дату кнопкой ниже."
}

func badSlotText() string {
	return "Пожалуйста, выберите время кнопкой ниже."
}

func badDurationText() string {
	return "Пожалуйста, выберите длительность кнопкой ниже."
}

func slotPassedText() string {
	return "⏰ Это время уже прошло.\n\nВыберите другое время начала:"
}

func confirmedText(iv schedule.Interval, creditSpent bool, visitsLeft int, haveBalance bool, loc *time.Location) string {
	start := iv.Start.In(loc)
	end := iv.End.In(loc)
	hours := int(iv.Duration() / time.Hour)

	var b strings.Builder
	b.WriteString("🎉 Поздравляем! Вы успешно записаны!\n\n")
	fmt.Fprintf(&b, "📅 Дата: %s\n", start.Format("02.01.2006"))
	fmt.Fprintf(&b, "🕐 Время: %s - %s\n", start.Format("15:04"), end.Format("15:04"))
	fmt.Fprintf(&b, "⏱️ Длительность: %s\n\n", durationLabel(hours))
	if creditSpent {
		if haveBalance {
			fmt.Fprintf(&b, "🎟 Списан 1 визит, осталось: %s.\n\n", visitsLabel(visitsLeft))
		} else {
			b.WriteString("🎟 Списан 1 визит.\n\n")
		}
	} else {
		b.WriteString("🎟 Визит не списан: у вас уже есть запись в этот день.\n\n")
	}
	b.WriteString("До встречи в мастерской! 🎨")
	return b.String()
}

func rejectionText(reason bookings.RejectReason) string {
	switch reason {
	case bookings.ReasonSlotTaken:
		return "❌ К сожалению, это время уже занято.\n\nПожалуйста, выберите другое время."
	case bookings.ReasonNoCreditsLeft:
		return "😔 В вашем абонементе не осталось визитов.\n\nПополнить абонемент можно у администратора мастерской."
	case bookings.ReasonStorageUnavailable:
		return "❌ Сервис временно недоступен.\n\nПожалуйста, попробуйте ещё раз через пару минут."
	default:
		return "❌ Произошла ошибка при сохранении бронирования.\n\nПожалуйста, попробуйте ещё раз."
	}
}

func errorText() string {
	return "❌ Произошла ошибка. Пожалуйста, попробуйте ещё раз."
}

func bookingLine(idx int, b bookings.Booking, loc *time.Location) string {
	start := b.StartAt.In(loc)
	end := b.EndAt.In(loc)
	return fmt.Sprintf("%d. %s %s - %s", idx, start.Format(schedule.DateLabelFormat),
		start.Format("15:04"), end.Format("15:04"))
}

func myBookingsText(list []bookings.Booking, loc *time.Location) string {
	if len(list) == 0 {
		return "У вас пока нет предстоящих записей.\n\nНажмите «" + btnBook + "», чтобы записаться."
	}
	var b strings.Builder
	b.WriteString("📋 Ваши ближайшие записи:\n\n")
	for i, bk := range list {
		b.WriteString(bookingLine(i+1, bk, loc))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func balanceText(visitsLeft int) string {
	if visitsLeft <= 0 {
		return "🎟 Ваш абонемент пуст.\n\nПополнить его можно у администратора мастерской."
	}
	return fmt.Sprintf("🎟 Ваш абонемент: %s.", visitsLabel(visitsLeft))
}

func cancelPromptText(list []bookings.Booking, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Какую запись отменить?\n\n")
	for i, bk := range list {
		b.WriteString(bookingLine(i+1, bk, loc))
		b.WriteByte('\n')
	}
	b.WriteString("\nВизит за отменённую запись не возвращается.")
	return b.String()
}

func cancelKeyboard(list []bookings.Booking, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(list)+1)
	for i, bk := range list {
		rows = append(rows, []string{bookingLine(i+1, bk, loc)})
	}
	rows = append(rows, []string{btnAbort})
	return rows
}

func nothingToCancelText() string {
	return "У вас нет предстоящих записей, отменять нечего."
}

func cancelledText() string {
	return "✅ Запись отменена."
}

func alreadyCancelledText() string {
	return "Эта запись уже отменена."
}

func grantUsageText() string {
	return "Использование: /grant <chat_id> <визиты>"
}

func grantDoneText(chatID int64, granted, balance int) string {
	return fmt.Sprintf("✅ Гостю %d начислено %s. Теперь на абонементе: %s.",
		chatID, visitsLabel(granted), visitsLabel(balance))
}

func dayScheduleText(day time.Time, list []bookings.Booking, loc *time.Location) string {
	label := day.In(loc).Format(schedule.DateLabelFormat)
	if len(list) == 0 {
		return fmt.Sprintf("📅 На %s записей нет.", label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Записи на %s:\n\n", label)
	for _, bk := range list {
		start := bk.StartAt.In(loc)
		end := bk.EndAt.In(loc)
		fmt.Fprintf(&b, "🕐 %s - %s — гость %d\n", start.Format("15:04"), end.Format("15:04"), bk.ChatID)
	}
	return strings.TrimRight(b.String(), "\n")
}
