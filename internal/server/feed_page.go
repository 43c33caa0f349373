package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// feedPageHTML is a self-contained live monitor for the /ws analysis feed.
const feedPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Live Feed · Fraudwatch</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        :root {
            --bg: #09090b; --bg-subtle: #18181b; --border: #27272a;
            --text: #fafafa; --text-secondary: #a1a1aa; --text-tertiary: #52525b;
            --low: #22c55e; --medium: #eab308; --high: #ef4444;
        }
        body {
            font-family: -apple-system, 'Segoe UI', sans-serif;
            background: var(--bg); color: var(--text);
            min-height: 100vh; font-size: 14px;
        }
        .mono { font-family: ui-monospace, 'SF Mono', monospace; }
        .container { max-width: 880px; margin: 0 auto; padding: 0 24px; }
        header { border-bottom: 1px solid var(--border); padding: 16px 0; position: sticky; top: 0; background: var(--bg); }
        .header-inner { display: flex; justify-content: space-between; align-items: center; }
        .logo { font-weight: 600; font-size: 15px; }
        .status { color: var(--text-secondary); font-size: 13px; }
        .status.live::before { content: '●'; color: var(--low); margin-right: 6px; }
        .stats { display: grid; grid-template-columns: repeat(4, 1fr); gap: 12px; padding: 24px 0; }
        .stat { background: var(--bg-subtle); border: 1px solid var(--border); border-radius: 8px; padding: 14px; }
        .stat-label { color: var(--text-tertiary); font-size: 12px; text-transform: uppercase; letter-spacing: .04em; }
        .stat-value { font-size: 22px; font-weight: 600; margin-top: 4px; }
        .filters { display: flex; gap: 8px; padding-bottom: 16px; }
        .filters button { background: var(--bg-subtle); border: 1px solid var(--border); color: var(--text-secondary); padding: 6px 12px; border-radius: 16px; cursor: pointer; }
        .filters button.active { color: var(--text); border-color: var(--text-secondary); }
        .row { display: grid; grid-template-columns: 90px 1fr 110px 90px; gap: 12px; align-items: center; padding: 12px 0; border-bottom: 1px solid var(--border); }
        .badge { font-size: 11px; font-weight: 600; padding: 3px 8px; border-radius: 10px; text-align: center; }
        .badge.low { background: rgba(34,197,94,.15); color: var(--low); }
        .badge.medium { background: rgba(234,179,8,.15); color: var(--medium); }
        .badge.high { background: rgba(239,68,68,.15); color: var(--high); }
        .meta { color: var(--text-secondary); font-size: 12px; }
        .reasons { color: var(--high); font-size: 12px; }
        .amount { text-align: right; }
        .score { text-align: right; color: var(--text-secondary); }
        .empty { color: var(--text-tertiary); padding: 48px 0; text-align: center; }
    </style>
</head>
<body>
    <header><div class="container header-inner">
        <span class="logo">Fraudwatch</span>
        <span class="status" id="status">connecting…</span>
    </div></header>
    <main class="container">
        <div class="stats">
            <div class="stat"><div class="stat-label">Scored</div><div class="stat-value mono" id="total">0</div></div>
            <div class="stat"><div class="stat-label">Fraud</div><div class="stat-value mono" id="fraud">0</div></div>
            <div class="stat"><div class="stat-label">Fraud rate</div><div class="stat-value mono" id="rate">0%</div></div>
            <div class="stat"><div class="stat-label">Method</div><div class="stat-value" style="font-size:14px" id="method">–</div></div>
        </div>
        <div class="filters">
            <button class="active" data-level="">All</button>
            <button data-level="high">High</button>
            <button data-level="medium">Medium</button>
            <button data-level="low">Low</button>
        </div>
        <div id="feed"><div class="empty">Waiting for transactions…</div></div>
    </main>
    <script>
        const feed = document.getElementById('feed');
        const statusEl = document.getElementById('status');
        const maxRows = 50;
        let ws;

        function row(ev) {
            const tx = ev.transaction, a = ev.analysis;
            const reasons = (a.anomalies || []).join(' · ');
            return '<div class="row">' +
                '<span class="badge ' + ev.alert_level + '">' + ev.recommendation + '</span>' +
                '<div><div>' + (tx.merchant_type || '?') + ' · ' + (tx.location || '?') + '</div>' +
                '<div class="meta">' + (tx.time_of_day || '') + ' · ' + (tx.card_type || '') + ' · ' + new Date(ev.timestamp).toLocaleTimeString() + '</div>' +
                (reasons ? '<div class="reasons">' + reasons + '</div>' : '') + '</div>' +
                '<div class="amount mono">$' + Number(tx.amount).toFixed(2) + '</div>' +
                '<div class="score mono">' + a.risk_score.toFixed(3) + '</div>' +
                '</div>';
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(proto + location.host + '/ws');
            ws.onopen = () => { statusEl.textContent = 'live'; statusEl.className = 'status live'; };
            ws.onclose = () => { statusEl.textContent = 'reconnecting…'; statusEl.className = 'status'; setTimeout(connect, 2000); };
            ws.onmessage = msg => {
                const ev = JSON.parse(msg.data);
                if (feed.querySelector('.empty')) feed.innerHTML = '';
                feed.insertAdjacentHTML('afterbegin', row(ev));
                while (feed.children.length > maxRows) feed.lastChild.remove();
            };
        }

        document.querySelectorAll('.filters button').forEach(btn => btn.onclick = () => {
            document.querySelectorAll('.filters button').forEach(b => b.classList.remove('active'));
            btn.classList.add('active');
            const level = btn.dataset.level;
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ alert_levels: level ? [level] : [] }));
            }
        });

        function loadStats() {
            fetch('/stats').then(r => r.json()).then(s => {
                const t = s.transaction_stats;
                document.getElementById('total').textContent = t.total_transactions;
                document.getElementById('fraud').textContent = t.fraud_detected;
                document.getElementById('rate').textContent = t.fraud_rate + '%';
                document.getElementById('method').textContent = s.detection_method;
            });
        }

        connect();
        loadStats();
        setInterval(loadStats, 5000);
    </script>
</body>
</html>`

func feedPageHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, feedPageHTML)
}
