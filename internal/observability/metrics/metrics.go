package metrics

import "github.com/prometheus/client_golang/prometheus"

// DecisionSecondsMetric is the fully qualified histogram name for booking
// decision latency, referenced by the admin stats snapshot.
const DecisionSecondsMetric = "artchaos_bookings_decision_seconds"

// BookingMetrics exposes counters/histograms for the booking pipeline.
type BookingMetrics struct {
	createdTotal             prometheus.Counter
	rejectedTotal            *prometheus.CounterVec
	cancelledTotal           prometheus.Counter
	creditsGrantedTotal      prometheus.Counter
	decisionSeconds          prometheus.Histogram
	reminderScheduleFailures prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		createdTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Total confirmed bookings",
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "bookings",
			Name:      "rejected_total",
			Help:      "Total rejected booking requests",
		}, []string{"reason"}),
		cancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "bookings",
			Name:      "cancelled_total",
			Help:      "Total cancelled bookings",
		}),
		creditsGrantedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "bookings",
			Name:      "credits_granted_total",
			Help:      "Total visits granted to passes",
		}),
		decisionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "artchaos",
			Subsystem: "bookings",
			Name:      "decision_seconds",
			Help:      "Latency of the booking decision pipeline",
			Buckets:   prometheus.DefBuckets,
		}),
		reminderScheduleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "bookings",
			Name:      "reminder_schedule_failures_total",
			Help:      "Reminder scheduling failures after a confirmed booking",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.createdTotal, m.rejectedTotal, m.cancelledTotal,
		m.creditsGrantedTotal, m.decisionSeconds, m.reminderScheduleFailures,
	)
	return m
}

func (m *BookingMetrics) ObserveCreated() {
	if m == nil {
		return
	}
	m.createdTotal.Inc()
}

func (m *BookingMetrics) ObserveRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveCancelled() {
	if m == nil {
		return
	}
	m.cancelledTotal.Inc()
}

func (m *BookingMetrics) ObserveCreditsGranted(visits int) {
	if m == nil {
		return
	}
	m.creditsGrantedTotal.Add(float64(visits))
}

func (m *BookingMetrics) ObserveDecisionSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.decisionSeconds.Observe(seconds)
}

func (m *BookingMetrics) ObserveReminderScheduleFailure() {
	if m == nil {
		return
	}
	m.reminderScheduleFailures.Inc()
}

// ReminderMetrics exposes counters/histograms for reminder delivery.
type ReminderMetrics struct {
	scheduledTotal  prometheus.Counter
	sentTotal       prometheus.Counter
	sendFailures    prometheus.Counter
	dispatchSeconds prometheus.Histogram
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		scheduledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "reminders",
			Name:      "scheduled_total",
			Help:      "Total reminder triggers written",
		}),
		sentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Total reminders delivered",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "reminders",
			Name:      "send_failures_total",
			Help:      "Reminder delivery failures",
		}),
		dispatchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "artchaos",
			Subsystem: "reminders",
			Name:      "dispatch_seconds",
			Help:      "Latency of one dispatcher drain pass",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.scheduledTotal, m.sentTotal, m.sendFailures, m.dispatchSeconds)
	return m
}

func (m *ReminderMetrics) ObserveScheduled(count int) {
	if m == nil {
		return
	}
	m.scheduledTotal.Add(float64(count))
}

func (m *ReminderMetrics) ObserveSent() {
	if m == nil {
		return
	}
	m.sentTotal.Inc()
}

func (m *ReminderMetrics) ObserveSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

func (m *ReminderMetrics) ObserveDispatchSeconds(seconds float64) {
	if m == nil {
		return
	}
	m.dispatchSeconds.Observe(seconds)
}

// ConversationMetrics exposes counters for the chat flow.
type ConversationMetrics struct {
	turnsTotal   *prometheus.CounterVec
	sendFailures *prometheus.CounterVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Conversation turns handled, labelled by the state they arrived in",
		}, []string{"state"}),
		sendFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "artchaos",
			Subsystem: "conversation",
			Name:      "send_failures_total",
			Help:      "Outbound chat message failures",
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.sendFailures)
	return m
}

func (m *ConversationMetrics) ObserveTurn(state string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state).Inc()
}

func (m *ConversationMetrics) ObserveSendFailure(channel string) {
	if m == nil {
		return
	}
	m.sendFailures.WithLabelValues(channel).Inc()
}
