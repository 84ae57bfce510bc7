package bot

import (
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"rfkeeper/pkg/rf"
)

// Callback payload namespaces. Buttons carry these opaque strings back when
// pressed.
const (
	callbackSaveRequest  = "save-node-request"
	callbackSaveToLast   = "save-node-to-last"
	callbackSaveToPrefix = "save-node-to-"
	callbackSaveGoBack   = "save-node-go-back"
	callbackMoveRequest  = "move-node-request"
	callbackMoveToPrefix = "move-node-to-"
	callbackMoveGoBack   = "move-node-go-back"
)

// saveKeyboard is the first keyboard level offered on a saveable message.
func saveKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Save to last").WithCallbackData(callbackSaveToLast),
			tu.InlineKeyboardButton("Save to").WithCallbackData(callbackSaveRequest),
		),
	)
}

// moveKeyboard is offered once a node exists; nodeURL opens it on the map.
func moveKeyboard(nodeURL string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Move to").WithCallbackData(callbackMoveRequest),
			tu.InlineKeyboardButton("Open in browser").WithURL(nodeURL),
		),
	)
}

// pickerKeyboard lists favorite destinations, one button per titled node,
// plus a back button returning to the previous keyboard level.
func pickerKeyboard(favorites []rf.Node, payloadPrefix string, backPayload string) *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton
	for _, node := range favorites {
		if node.Title == "" {
			continue
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(node.Title).WithCallbackData(payloadPrefix+node.ID),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("Back").WithCallbackData(backPayload),
	))

	return tu.InlineKeyboard(rows...)
}
