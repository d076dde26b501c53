package tui

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/yuchen-w/fangnote/internal/models"
)

// Form field order. rentOrSale is a toggle, everything else a text input.
const (
	fieldCommunity = iota
	fieldPrice
	fieldRentOrSale
	fieldLayout
	fieldArea
	fieldFloor
	fieldOrientation
	fieldContactName
	fieldContactPhone
	fieldNotes
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"小区名称",
	"价格",
	"出租/出售",
	"户型",
	"面积(㎡)",
	"楼层",
	"朝向",
	"联系人",
	"联系电话",
	"备注",
}

// formModel edits one extracted listing before publishing it or saving it as
// a template.
type formModel struct {
	taskID     string
	inputs     [fieldCount - 1]textinput.Model // all fields except rentOrSale
	rentOrSale models.RentOrSale
	focus      int
	theme      Theme
}

// inputIndex maps a field index to its slot in inputs, skipping the toggle.
func inputIndex(field int) int {
	if field < fieldRentOrSale {
		return field
	}
	return field - 1
}

func newFormModel(taskID string, l models.Listing, theme Theme) formModel {
	f := formModel{taskID: taskID, rentOrSale: l.RentOrSale, theme: theme}
	if f.rentOrSale == "" {
		f.rentOrSale = models.Rent
	}

	values := map[int]string{
		fieldCommunity:    l.CommunityName,
		fieldPrice:        l.Price.String(),
		fieldLayout:       l.Layout,
		fieldArea:         strconv.FormatFloat(l.Area, 'f', -1, 64),
		fieldFloor:        l.Floor,
		fieldOrientation:  l.Orientation,
		fieldContactName:  l.ContactName,
		fieldContactPhone: l.ContactPhone,
		fieldNotes:        l.AdditionalNotes,
	}

	for field := 0; field < fieldCount; field++ {
		if field == fieldRentOrSale {
			continue
		}
		ti := textinput.New()
		ti.Prompt = ""
		ti.SetValue(values[field])
		f.inputs[inputIndex(field)] = ti
	}
	f.inputs[inputIndex(fieldCommunity)].Focus()
	return f
}

// listing assembles the edited Listing from the field values.
func (f formModel) listing() models.Listing {
	get := func(field int) string {
		return strings.TrimSpace(f.inputs[inputIndex(field)].Value())
	}

	var price models.Price
	priceText := get(fieldPrice)
	if amount, err := strconv.ParseFloat(priceText, 64); err == nil {
		price = models.NumericPrice(amount)
	} else {
		price = models.TextPrice(priceText)
	}

	area, _ := strconv.ParseFloat(get(fieldArea), 64)

	return models.Listing{
		CommunityName:   get(fieldCommunity),
		Price:           price,
		RentOrSale:      f.rentOrSale,
		Layout:          get(fieldLayout),
		Area:            area,
		Floor:           get(fieldFloor),
		Orientation:     get(fieldOrientation),
		ContactName:     get(fieldContactName),
		ContactPhone:    get(fieldContactPhone),
		AdditionalNotes: get(fieldNotes),
	}
}

func (f formModel) Update(msg tea.Msg) (formModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyPressMsg); ok {
		switch key.String() {
		case "tab", "down", "enter":
			f.setFocus((f.focus + 1) % fieldCount)
			return f, nil
		case "shift+tab", "up":
			f.setFocus((f.focus + fieldCount - 1) % fieldCount)
			return f, nil
		case "left", "right", "space":
			if f.focus == fieldRentOrSale {
				if f.rentOrSale == models.Rent {
					f.rentOrSale = models.Sale
				} else {
					f.rentOrSale = models.Rent
				}
				return f, nil
			}
		}
	}

	if f.focus == fieldRentOrSale {
		return f, nil
	}
	var cmd tea.Cmd
	idx := inputIndex(f.focus)
	f.inputs[idx], cmd = f.inputs[idx].Update(msg)
	return f, cmd
}

func (f *formModel) setFocus(field int) {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.focus = field
	if field != fieldRentOrSale {
		f.inputs[inputIndex(field)].Focus()
	}
}

func (f formModel) View() string {
	t := f.theme
	var b strings.Builder

	b.WriteString(t.titleStyle().Render("编辑房源"))
	b.WriteString("\n\n")

	for field := 0; field < fieldCount; field++ {
		label := fieldLabels[field]
		marker := "  "
		labelStyle := t.mutedStyle()
		if field == f.focus {
			marker = "> "
			labelStyle = t.selectedStyle()
		}

		var value string
		if field == fieldRentOrSale {
			value = rentOrSaleLabel(f.rentOrSale)
			if field == f.focus {
				value += t.mutedStyle().Render("  (←/→ 切换)")
			}
		} else {
			value = f.inputs[inputIndex(field)].View()
		}

		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, labelStyle.Render(fmt.Sprintf("%-10s", label)), value))
	}

	b.WriteString("\n")
	b.WriteString(t.mutedStyle().Render("ctrl+s 发布   ctrl+t 存为模版   esc 取消"))
	return b.String()
}

func rentOrSaleLabel(r models.RentOrSale) string {
	if r == models.Sale {
		return "出售 (Sale)"
	}
	return "出租 (Rent)"
}
