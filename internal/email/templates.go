package email

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
)

const TemplateWelcome = "welcome"

const welcomeTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Welcome to {{.CompanyName}}, {{.UserName}}!</h2>
  <p>Your account is ready.</p>
  {{if .ReferralLink}}
  <p>Invite friends with your personal link:</p>
  <p><a href="{{.ReferralLink}}">{{.ReferralLink}}</a></p>
  {{end}}
</body>
</html>`

// TemplateManager реализует TemplateRenderer для управления шаблонами email
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

// NewTemplateManager создает менеджер со встроенными шаблонами.
func NewTemplateManager() *TemplateManager {
	tm := &TemplateManager{
		templates: make(map[string]*template.Template),
	}
	// встроенный шаблон, ошибка здесь невозможна
	_ = tm.AddTemplate(TemplateWelcome, welcomeTemplate)
	return tm
}

// Render рендерит шаблон с данными
func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// AddTemplate добавляет шаблон в менеджер
func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()

	return nil
}

// TemplateNames возвращает отсортированный список имен шаблонов
func (tm *TemplateManager) TemplateNames() []string {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	names := make([]string, 0, len(tm.templates))
	for name := range tm.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func welcomeData(companyName, userName, referralLink string) TemplateData {
	if userName == "" {
		userName = "there"
	}
	return TemplateData{
		"CompanyName":  companyName,
		"UserName":     userName,
		"ReferralLink": referralLink,
	}
}
