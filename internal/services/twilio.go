package services

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/distrivet/asistente-backend/internal/config"
)

// TwilioMessenger delivers WhatsApp messages through the Twilio API.
// Interactive buttons and lists go out as pre-approved content templates;
// their SIDs come from configuration.
type TwilioMessenger struct {
	client             *twilio.RestClient
	from               string // Format: "whatsapp:+14155238886"
	buttonsTemplateSID string
	listTemplateSID    string
}

var _ Messenger = &TwilioMessenger{}

// NewTwilioMessenger creates a Twilio-backed messenger.
func NewTwilioMessenger(cfg config.TwilioConfig) (*TwilioMessenger, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.WhatsAppFrom == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioMessenger{
		client:             client,
		from:               cfg.WhatsAppFrom,
		buttonsTemplateSID: cfg.ButtonsTemplateSID,
		listTemplateSID:    cfg.ListTemplateSID,
	}, nil
}

// SendText sends a plain WhatsApp message.
func (t *TwilioMessenger) SendText(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// SendButtons sends up to three quick-reply buttons via a content template.
func (t *TwilioMessenger) SendButtons(to, body string, options []ButtonOption) error {
	if err := validateButtons(options); err != nil {
		return err
	}

	variables := map[string]string{"body": body}
	for i, opt := range options {
		variables["button_"+strconv.Itoa(i+1)+"_id"] = opt.ID
		variables["button_"+strconv.Itoa(i+1)+"_title"] = opt.Title
	}
	return t.sendTemplate(to, t.buttonsTemplateSID, variables)
}

// SendList sends a list message via a content template.
func (t *TwilioMessenger) SendList(to, body, header, buttonLabel string, sections []ListSection) error {
	rowsJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal list sections: %w", err)
	}

	variables := map[string]string{
		"body":         body,
		"header":       header,
		"button_label": buttonLabel,
		"sections":     string(rowsJSON),
	}
	return t.sendTemplate(to, t.listTemplateSID, variables)
}

// SendContactCard shares a contact. Twilio WhatsApp has no dedicated
// contact message on this API surface, so the card goes out as text.
func (t *TwilioMessenger) SendContactCard(to string, contact Contact) error {
	body := fmt.Sprintf("👤 %s\n📞 %s", contact.Name, contact.Phone)
	return t.SendText(to, body)
}

func (t *TwilioMessenger) sendTemplate(to, templateSID string, contentVariables map[string]string) error {
	if templateSID == "" {
		// no template configured (development): degrade to plain text
		return t.SendText(to, contentVariables["body"])
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetContentSid(templateSID)

	if len(contentVariables) > 0 {
		variablesJSON, err := json.Marshal(contentVariables)
		if err != nil {
			return fmt.Errorf("marshal content variables: %w", err)
		}
		params.SetContentVariables(string(variablesJSON))
	}

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp template: %v", err)
		return err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, *resp.ErrorMessage)
	}

	log.Printf("✅ WhatsApp template sent! SID: %s, Template: %s", *resp.Sid, templateSID)
	return nil
}
