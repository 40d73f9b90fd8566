package render

// DefaultTemplates is the built-in message set. Keys are grouped by the
// workflow that emits them.
var DefaultTemplates = map[string]string{
	"session.cancelled":  "Okay, I have cancelled that request. Nothing was changed.",
	"session.start_over": "Sorry, I lost track of that conversation. Please start again from the beginning.",
	"session.expired":    "That conversation timed out after {{.minutes}} minutes of inactivity. Please start again.",
	"error.generic":      "Sorry, something went wrong on our side. Please try again in a moment, or contact our support line.",
	"error.not_found":    "I could not find ticket {{.ticketId}}. Please check the code and try again.",
	"error.unauthorized":  "You are not allowed to do that.",
	"error.unknown_actor": "This number is not registered with us. Please contact our support line to get set up.",
	"help.menu":          "I can help with:\n1. Change WiFi name\n2. Change WiFi password\n3. Report a connection problem\nReply with an option, or type CANCEL at any point to stop.",

	"wifi.select_mode":       "Do you want to change one WiFi network or all of them?\n1. Just one\n2. All networks",
	"wifi.select_target":     "Which network?\n{{.options}}",
	"wifi.ask_name":          "What should the new WiFi name be? (1-32 characters)",
	"wifi.ask_password":      "What should the new WiFi password be? (8-63 characters)",
	"wifi.confirm":           "Apply {{.what}} \"{{.value}}\" to {{.target}}? Reply YES to apply or NO to stop.",
	"wifi.applying":          "Applying your change now, one moment...",
	"wifi.applied":           "Done! The change was sent to your router. It can take 1-2 minutes to apply and all devices will be disconnected briefly.",
	"wifi.declined":          "Alright, nothing was changed.",
	"wifi.already_submitted": "That change was already sent to your router. Give it 1-2 minutes to apply.",
	"wifi.invalid_option":    "Please reply with 1 or 2.",
	"wifi.invalid_target":    "Please pick one of the listed network numbers.",
	"wifi.invalid_name":      "That name will not work. Use 1-32 characters without emoji.",
	"wifi.invalid_password":  "That password will not work. Use 8-63 characters.",
	"wifi.confirm_prompt":    "Please reply YES or NO.",

	"triage.symptom":      "Sorry to hear that. What best describes the problem?\n1. No internet at all\n2. Internet is very slow\n3. Connection keeps dropping\n4. Something else",
	"triage.symptom_free": "Please describe the problem in a few words.",
	"triage.reachability": "Is the light on your router currently on?\nReply YES or NO.",
	"triage.created":      "Thanks. I have registered ticket {{.ticketId}} ({{.priority}} priority). A technician will contact you; you will receive a 6-digit visit code when one is assigned.",
	"triage.tech_alert":   "New ticket {{.ticketId}} ({{.priority}}): {{.symptom}}. Customer {{.customer}}. Reply ASSIGN {{.ticketId}} to take it.",

	"assign.ok_tech":     "Ticket {{.ticketId}} is yours. Ask the customer for the 6-digit visit code when you arrive, then reply VERIFY {{.ticketId}} <code>.",
	"assign.ok_customer": "A technician ({{.technician}}) has been assigned to ticket {{.ticketId}}. Your visit code is {{.otp}}. Only share it with the technician at your door. It expires in {{.hours}} hours.",
	"assign.conflict":    "Ticket {{.ticketId}} is already assigned to another technician.",
	"assign.cap":         "You already hold {{.count}} active tickets. Close one before taking another.",

	"otp.prompt":       "Enter the customer's 6-digit visit code for ticket {{.ticketId}}.",
	"otp.ok":           "Code accepted, you are verified on-site for ticket {{.ticketId}}. Send photos of the finished work when done, then reply RESOLVE {{.ticketId}}.",
	"otp.ok_customer":  "Technician verified for ticket {{.ticketId}}. Work is starting.",
	"otp.mismatch":     "That code does not match. {{.left}} attempts left.",
	"otp.locked":       "Too many wrong codes for ticket {{.ticketId}}. Please contact dispatch.",
	"otp.expired":      "The visit code for ticket {{.ticketId}} has expired. The ticket needs to be reassigned by dispatch.",
	"otp.invalid":      "The visit code is 6 digits.",

	"evidence.flushed":   "{{.count}} photo(s) attached to ticket {{.ticketId}}.",
	"evidence.failed":    "I could not attach those photos to ticket {{.ticketId}}. {{.reason}}",
	"evidence.ambiguous": "Which ticket are these photos for? Send them as: <ticket code> photo:<ref>",

	"resolve.notes":         "Briefly describe what you fixed for ticket {{.ticketId}}.",
	"resolve.ok":            "Ticket {{.ticketId}} marked as resolved. The customer received a 4-digit confirmation code; the ticket closes when they confirm.",
	"resolve.ok_customer":   "Ticket {{.ticketId}} was marked fixed. If everything works, reply CONFIRM {{.ticketId}} {{.code}} within {{.hours}} hours.",
	"resolve.need_evidence": "Ticket {{.ticketId}} needs at least {{.min}} photos before it can be resolved. Send more photos first, then describe the fix again.",

	"confirm.prompt":      "Please enter the 4-digit confirmation code for ticket {{.ticketId}}.",
	"confirm.ok":          "Thank you! Ticket {{.ticketId}} is now closed. Total handling time: {{.duration}}.",
	"confirm.ok_tech":     "Customer confirmed ticket {{.ticketId}}. Nice work.",
	"confirm.mismatch":    "That confirmation code does not match. Please check the 4-digit code and try again.",
	"confirm.expired":     "The confirmation code for ticket {{.ticketId}} has expired. Please contact support to close the ticket.",

	"cancel.ok":       "Ticket {{.ticketId}} has been cancelled.",
	"cancel.refused":  "Ticket {{.ticketId}} can no longer be cancelled; work on it was already verified. It has to go through resolution.",
}
