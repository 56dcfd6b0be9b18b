package notifier

// A Notification describes one state change made by smart control
type Notification struct {
	Title   string
	Message string
}

type Notifier interface {
	Notify(Notification)
}

type Notifiers []Notifier

func (n Notifiers) Notify(notification Notification) {
	for _, l := range n {
		l.Notify(notification)
	}
}
